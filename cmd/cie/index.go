package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderadar/internal/wire"
)

var indexRef string

var indexCmd = &cobra.Command{
	Use:   "index <repo-url>",
	Short: "Build or refresh a repository's retrieval index.",
	Long:  `Clones repo-url at --ref (default branch if omitted), chunks and embeds its source, and upserts the result into the vector store, the same pipeline a push to the default branch triggers.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		repoURL := args[0]
		owner, name, err := ownerNameFromURL(repoURL)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		repo, err := application.ResolveRepository(ctx, owner, name, "main")
		if err != nil {
			return fmt.Errorf("resolving repository record: %w", err)
		}

		if err := application.IndexRepo(ctx, repo.ID, repoURL, indexRef); err != nil {
			return fmt.Errorf("index build failed: %w", err)
		}

		fmt.Printf("indexed %s/%s\n", owner, name)
		return nil
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexRef, "ref", "", "branch, tag, or commit SHA to index (default: remote's default branch)")
	rootCmd.AddCommand(indexCmd)
}

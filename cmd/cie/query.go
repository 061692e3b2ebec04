package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderadar/internal/wire"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query <owner/name> <question>",
	Short: "Ask a question about an indexed repository and get a proof-carrying answer.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		repoFullName := args[0]
		question := strings.Join(args[1:], " ")

		owner, name, ok := strings.Cut(repoFullName, "/")
		if !ok {
			return fmt.Errorf("repository %q is not in owner/name form", repoFullName)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		repo, err := application.Store.GetRepositoryByFullName(ctx, repoFullName)
		if err != nil {
			return fmt.Errorf("looking up repository %s: %w", repoFullName, err)
		}
		if repo == nil {
			return fmt.Errorf("repository %s is not indexed yet; run `cie index` first", repoFullName)
		}

		ans, err := application.Answer(ctx, repo.ID, owner+"/"+name, repo.LastIndexedSHA, question)
		if err != nil {
			return fmt.Errorf("answering question: %w", err)
		}

		if queryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ans)
		}

		fmt.Printf("confidence: %s\n\n", ans.ConfidenceTier)
		for _, sec := range ans.Sections {
			if sec.Heading != "" {
				fmt.Printf("## %s\n", sec.Heading)
			}
			fmt.Println(sec.Text)
			fmt.Println()
		}
		if len(ans.Citations) > 0 {
			fmt.Println("sources:")
			for _, c := range ans.Citations {
				fmt.Printf("  %s:%d-%d\n", c.FilePath, c.StartLine, c.EndLine)
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

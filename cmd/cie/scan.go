package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderadar/internal/wire"
)

var scanRef string

var scanCmd = &cobra.Command{
	Use:   "scan <repo-url>",
	Short: "Scan a repository and print the findings from a fresh run.",
	Long:  `Clones repo-url at --ref (default branch if omitted), runs the full discover/parse/analyze pipeline, and persists the resulting ScanRun and Findings.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		repoURL := args[0]
		owner, name, err := ownerNameFromURL(repoURL)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
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

		run, findings, err := application.Scan(ctx, repoURL, repo.ID, scanRef)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("scan %s: %s (%d findings, %d degraded flags)\n", run.CommitSHA, run.Status, len(findings), len(run.DegradedFlags))
		for _, f := range findings {
			loc := "?"
			if len(f.Instances) > 0 {
				ev := f.Instances[0].Evidence
				loc = fmt.Sprintf("%s:%d", ev.FilePath, ev.StartLine)
			}
			fmt.Printf("  [%s] %s %s\n", f.Severity, loc, f.Title)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanRef, "ref", "", "branch, tag, or commit SHA to scan (default: remote's default branch)")
	rootCmd.AddCommand(scanCmd)
}

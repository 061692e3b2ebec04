package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sevigo/coderadar/internal/wire"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every repository coderadar knows about.",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		application, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer cleanup()

		repos, err := application.Store.GetAllRepositories(ctx)
		if err != nil {
			return fmt.Errorf("failed to retrieve repositories: %w", err)
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(repos)
		}

		if len(repos) == 0 {
			fmt.Println("no repositories are tracked yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REPOSITORY\tINDEX STATUS\tLAST INDEXED SHA\tFILES\tSYMBOLS\tSCAN STATE")
		for _, r := range repos {
			sha := r.LastIndexedSHA
			if len(sha) > 7 {
				sha = sha[:7]
			}
			scanState := "-"
			if st, err := application.Store.GetScanState(ctx, r.ID); err == nil && st != nil {
				scanState = st.Status
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", r.FullName, r.IndexStatus, sha, r.FileCount, r.SymbolCount, scanState)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

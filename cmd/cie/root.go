package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cie",
	Short: "cie drives coderadar's scan, index, and query pipelines from the command line",
	Long:  `cie is coderadar's CLI: it scans a repository for findings, builds or refreshes its retrieval index, and answers questions against that index, the same pipelines the GitHub webhook triggers automatically.`,
}

func Execute() error {
	return rootCmd.Execute()
}

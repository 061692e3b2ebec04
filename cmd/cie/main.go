// Command cie is coderadar's CLI: scan, index, and query repositories
// directly, without going through the GitHub webhook path.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		slog.Error("cie failed", "error", err)
		os.Exit(1)
	}
}

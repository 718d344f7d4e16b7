package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dropkit",
		Short: "CSV batch upload server",
		Long: `Dropkit serves a drag-and-drop CSV selection control over WebSocket.

Browsers stage files over HTTP, build a batch in a live session, and
submit it all-or-nothing. Validated batches are archived on disk or in
S3 for downstream processing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		cleanupCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

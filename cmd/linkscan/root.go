package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkscan",
		Short: "Find broken links on a web page",
		Long: `linkscan fetches a seed page, extracts every link on it and checks each
one with HEAD (falling back to GET). Results are stored in a local sqlite
database so that scans can be listed, inspected and compared over time.

Scans run inline with "linkscan scan", or are queued to Redis with
"linkscan submit" and executed by one or more "linkscan worker" processes.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .linkscan in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the scan database (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewSubmitCmd())
	cmd.AddCommand(NewWorkerCmd())
	cmd.AddCommand(NewRetryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

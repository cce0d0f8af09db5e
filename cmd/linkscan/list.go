package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/report"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded scans, newest first",
		Long: `List prints one page of scans from the local database, newest first.

Examples:
  linkscan list
  linkscan list --url https://example.com
  linkscan list --limit 100 --cursor 2s`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	cmd.Flags().IntP("limit", "l", database.DefaultScanLimit, "Number of scans per page")
	cmd.Flags().String("cursor", "", "Continue after a previous page")
	cmd.Flags().StringP("url", "u", "", "Only list scans of this seed URL")
	addReportFlags(cmd)

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	opts := database.ListScansOptions{}
	if opts.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.Cursor, err = cmd.Flags().GetString("cursor"); err != nil {
		return err
	}
	if opts.URL, err = cmd.Flags().GetString("url"); err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	page, err := store.ListScans(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	out, closeOut, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	_, err = newReportWriter(cfg, out, false).WriteScanList(&report.ScanList{
		Scans:      page.Scans,
		NextCursor: page.NextCursor,
	})
	return err
}

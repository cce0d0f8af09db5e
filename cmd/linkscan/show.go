package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/report"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <scan-id>",
		Short: "Show a scan and its checked links",
		Long: `Show prints a scan's status and counts followed by one page of its items.
Use --status to list only broken or only reachable links and --cursor to
continue from a previous page.

Examples:
  linkscan show 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b
  linkscan show --status broken --limit 200 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b
  linkscan show --json 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("status", "s", string(database.FilterAll),
		"Item filter: ok, broken or all")
	cmd.Flags().IntP("limit", "l", database.DefaultItemLimit,
		"Number of items per page")
	cmd.Flags().String("cursor", "", "Continue after a previous page")
	addReportFlags(cmd)

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return err
	}
	filter, err := database.ParseItemFilter(status)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	cursor, err := cmd.Flags().GetString("cursor")
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	scan, err := store.GetScan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load scan %s: %w", args[0], err)
	}
	page, err := store.ListItems(ctx, scan.ID, database.ListItemsOptions{
		Status: filter,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	matching, err := store.CountItems(ctx, scan.ID, filter)
	if err != nil {
		return err
	}

	out, closeOut, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	_, err = newReportWriter(cfg, out, true).WriteScan(&report.ScanReport{
		Scan:          scan,
		Items:         page.Items,
		NextCursor:    page.NextCursor,
		MatchingItems: matching,
	})
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/report"
)

// errNoPreviousScan is returned when compare finds nothing to compare with.
var errNoPreviousScan = errors.New("no earlier finished scan of the same URL")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <scan-id>",
		Short: "Compare a scan with an earlier one",
		Long: `Compare shows how the links of a page changed between two scans: links that
broke, links that were fixed, links still broken and links no longer on the page.

Without --with the scan is compared with the most recent earlier finished scan
of the same URL.

Examples:
  # Compare with the previous scan of the same URL
  linkscan compare 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b

  # Compare two specific scans
  linkscan compare 5f1c0b7e-... --with 0a1b2c3d-...

  # Output as Markdown
  linkscan compare --markdown 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with", "w", "", "Scan ID of the base scan")
	addReportFlags(cmd)

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	withID, err := cmd.Flags().GetString("with")
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	diff, err := buildDiff(ctx, store, args[0], withID)
	if err != nil {
		return err
	}

	out, closeOut, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	_, err = newReportWriter(cfg, out, false).WriteDiff(diff)
	return err
}

// buildDiff loads the target scan, resolves the base scan and compares
// their items.
func buildDiff(ctx context.Context, store *database.Store, targetID, baseID string) (*report.Diff, error) {
	target, err := store.GetScan(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", targetID, err)
	}

	var base *model.Scan
	if baseID != "" {
		base, err = store.GetScan(ctx, baseID)
		if err != nil {
			return nil, fmt.Errorf("failed to load scan %s: %w", baseID, err)
		}
	} else {
		base, err = previousScan(ctx, store, target)
		if err != nil {
			return nil, err
		}
	}

	baseItems, err := store.AllItems(ctx, base.ID, database.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of scan %s: %w", base.ID, err)
	}
	targetItems, err := store.AllItems(ctx, target.ID, database.FilterAll)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of scan %s: %w", target.ID, err)
	}

	return report.CompareItems(base, target, baseItems, targetItems), nil
}

// previousScan returns the newest finished scan of target's URL that was
// created before target.
func previousScan(ctx context.Context, store *database.Store, target *model.Scan) (*model.Scan, error) {
	opts := database.ListScansOptions{URL: target.URL, Limit: database.MaxScanLimit}
	seenTarget := false
	for {
		page, err := store.ListScans(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list scans of %s: %w", target.URL, err)
		}
		for _, s := range page.Scans {
			if s.ID == target.ID {
				seenTarget = true
				continue
			}
			if seenTarget && s.Status.Terminal() {
				return s, nil
			}
		}
		if page.NextCursor == "" {
			return nil, fmt.Errorf("%w: %s", errNoPreviousScan, target.URL)
		}
		opts.Cursor = page.NextCursor
	}
}

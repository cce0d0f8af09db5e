package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/config"
	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/intake"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/pipeline"
)

// errNoTargets is returned when scan is called without URLs.
var errNoTargets = errors.New("no targets provided (specify one or more URLs as arguments)")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Check every link on one or more pages",
		Long: `Scan fetches each seed page, extracts its links and checks them right away,
without a job queue. Every scan is recorded in the local database and a report
is printed once it finishes.

A link is broken when it answers with a status of 400 or above, or not at
all. Links are checked with HEAD first; a 403, 404 or 405 is retried with GET.

Examples:
  # Scan a single page
  linkscan scan https://example.com

  # Scan several pages, two at a time
  linkscan scan --batch 2 https://example.com https://example.org

  # Check at most 100 links with 32 checks in flight
  linkscan scan -n 100 -C 32 https://example.com

  # Write a Markdown report
  linkscan scan --markdown -o report.md https://example.com

Configuration file (.linkscan) example:
  scan:
    maxLinks: 300
    checkTimeout: 5s
  sites:
    intranet.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addCapFlags(cmd)
	addCheckFlags(cmd)

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	addReportFlags(cmd)

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd, cfg, args, logger)
}

// runScan creates a scan per target, runs them through the batch runner
// and prints a report for each.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, targets []string, logger *slog.Logger) error {
	if len(targets) == 0 {
		return errNoTargets
	}
	for _, target := range targets {
		if err := model.ValidateSeedURL(target); err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Jobs are collected first so that every scan exists before any runs.
	collector := &intake.CollectingEnqueuer{}
	svc := intake.NewService(store, collector,
		intake.WithDefaults(intake.Defaults{MaxLinks: cfg.MaxLinks, Concurrency: cfg.Concurrency}),
		intake.WithLogger(logger),
	)
	for _, target := range targets {
		if _, err := svc.Submit(ctx, target, 0, 0); err != nil {
			return err
		}
	}

	orch := newOrchestrator(cfg, store, client, nil, logger)
	runner := pipeline.NewBatchRunner(orch,
		pipeline.WithBatchConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	logger.Info("starting scan",
		"targets", len(targets),
		"batch_size", cfg.BatchSize,
	)
	results := runner.RunAll(ctx, collector.Jobs())

	return outputScanResults(ctx, cmd, cfg, store, results)
}

// outputScanResults prints a report per finished scan and returns an error
// if any scan did not complete.
func outputScanResults(ctx context.Context, cmd *cobra.Command, cfg *config.Config, store *database.Store, results []pipeline.BatchResult) error {
	out, closeOut, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := newReportWriter(cfg, out, false)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Scan error for %s: %v\n", r.Job.URL, r.Err)
		}

		// Aborted scans have nothing worth reporting
		if r.Err != nil && ctx.Err() != nil {
			continue
		}

		rep, err := loadScanReport(context.WithoutCancel(ctx), store, r.Job.ScanID)
		if err != nil {
			return err
		}
		if _, err := writer.WriteScan(rep); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scans did not complete", failed, len(results))
	}
	return nil
}

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
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/intake"
	"github.com/nao1215/linkscan/internal/queue"
)

// NewRetryCmd creates the retry command.
func NewRetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <scan-id>",
		Short: "Run a finished scan again",
		Long: `Retry moves a COMPLETED or FAILED scan back to QUEUED and schedules it again
with the default link cap and concurrency. Its previous items are replaced
once the new run starts.

By default the job is queued to Redis for a worker. With --inline the scan
runs in this process and a report is printed.

Examples:
  linkscan retry 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b
  linkscan retry --inline 5f1c0b7e-8a9d-4f2e-9b3a-1d2c3e4f5a6b`,
		Args: cobra.ExactArgs(1),
		RunE: runRetryCmd,
	}

	cmd.Flags().Bool("inline", false, "Run the scan here instead of queueing it")
	addCapFlags(cmd)
	addCheckFlags(cmd)
	addQueueFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runRetryCmd executes the retry command.
func runRetryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	inline, err := cmd.Flags().GetBool("inline")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if inline {
		return runRetryInline(ctx, cmd, cfg, args[0], logger)
	}
	return runRetryQueued(ctx, cmd, cfg, args[0], logger)
}

// runRetryQueued resets the scan and enqueues it to Redis.
func runRetryQueued(ctx context.Context, cmd *cobra.Command, cfg *config.Config, id string, logger *slog.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	streams, err := newStreamsClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer streams.Close()

	svc := intake.NewService(store, queue.NewProducer(streams, queue.ProducerConfig{}),
		intake.WithDefaults(intake.Defaults{MaxLinks: cfg.MaxLinks, Concurrency: cfg.Concurrency}),
		intake.WithLogger(logger),
	)
	scan, err := svc.Retry(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queued %s %s\n", scan.ID, scan.URL)
	return nil
}

// runRetryInline resets the scan, runs it in-process and prints the report.
func runRetryInline(ctx context.Context, cmd *cobra.Command, cfg *config.Config, id string, logger *slog.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	orch := newOrchestrator(cfg, store, client, nil, logger)
	svc := intake.NewService(store, intake.NewInlineEnqueuer(orch),
		intake.WithDefaults(intake.Defaults{MaxLinks: cfg.MaxLinks, Concurrency: cfg.Concurrency}),
		intake.WithLogger(logger),
	)

	_, runErr := svc.Retry(ctx, id)
	// A failed seed still produces a report worth printing
	if runErr != nil && !errors.Is(runErr, crawler.ErrSeedFetch) {
		return runErr
	}

	rep, err := loadScanReport(ctx, store, id)
	if err != nil {
		return err
	}

	out, closeOut, err := openReportOutput(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeOut()

	if _, err := newReportWriter(cfg, out, false).WriteScan(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return runErr
}

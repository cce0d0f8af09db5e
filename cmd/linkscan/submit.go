package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkscan/internal/config"
	"github.com/nao1215/linkscan/internal/intake"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/queue"
	"github.com/nao1215/linkscan/internal/report"
)

// NewSubmitCmd creates the submit command.
func NewSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [url...]",
		Short: "Queue scans for a worker",
		Long: `Submit records a QUEUED scan per URL and adds its job to the Redis stream.
A running "linkscan worker" picks the job up. The scan IDs are printed so
that the results can be inspected later with "linkscan show".

Examples:
  linkscan submit https://example.com
  linkscan submit --redis-url redis://:secret@queue:6379/0 -n 200 https://example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSubmitCmd,
	}

	addCapFlags(cmd)
	addQueueFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Print the queued scans as JSON")

	return cmd
}

// runSubmitCmd executes the submit command.
func runSubmitCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	return runSubmit(cmd.Context(), cmd, cfg, args, logger)
}

// runSubmit validates every URL, then creates and enqueues one scan each.
func runSubmit(ctx context.Context, cmd *cobra.Command, cfg *config.Config, targets []string, logger *slog.Logger) error {
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

	streams, err := newStreamsClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer streams.Close()

	producer := queue.NewProducer(streams, queue.ProducerConfig{})
	svc := intake.NewService(store, producer,
		intake.WithDefaults(intake.Defaults{MaxLinks: cfg.MaxLinks, Concurrency: cfg.Concurrency}),
		intake.WithLogger(logger),
	)

	scans := make([]*model.Scan, 0, len(targets))
	for _, target := range targets {
		scan, err := svc.Submit(ctx, target, 0, 0)
		if err != nil {
			return err
		}
		scans = append(scans, scan)
	}

	if depth, err := producer.Depth(ctx); err == nil {
		logger.Info("scans queued", "count", len(scans), "stream_length", depth)
	}

	if cfg.JSONReport {
		_, err := report.NewJSONWriter(cmd.OutOrStdout(), report.WithPrettyPrint()).
			WriteScanList(&report.ScanList{Scans: scans})
		return err
	}
	for _, scan := range scans {
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s %s\n", scan.ID, scan.URL)
	}
	return nil
}

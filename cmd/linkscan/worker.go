package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkscan/internal/config"
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/pipeline"
	"github.com/nao1215/linkscan/internal/queue"
)

// metricsShutdownTimeout bounds the graceful stop of the metrics server.
const metricsShutdownTimeout = 5 * time.Second

// scanStatusReader reads back a scan after a failed run.
type scanStatusReader interface {
	GetScan(ctx context.Context, id string) (*model.Scan, error)
}

// NewWorkerCmd creates the worker command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run queued scans from Redis",
		Long: `Worker consumes scan jobs from the Redis stream and runs them one at a time.

A job is acknowledged once its scan is COMPLETED or FAILED. When a run is
interrupted the job stays pending and is claimed again by any worker after
--claim-min-idle. Jobs attempted more than --max-deliveries times are dropped.

Prometheus metrics are served on --metrics-addr at /metrics.

Examples:
  linkscan worker
  linkscan worker --log-json --metrics-addr :9100 --consumer worker-1`,
		Args: cobra.NoArgs,
		RunE: runWorkerCmd,
	}

	addCheckFlags(cmd)
	addQueueFlags(cmd)
	cmd.Flags().String("group", queue.DefaultConsumerGroup,
		"Redis consumer group shared by all workers")
	cmd.Flags().String("consumer", "",
		"Consumer name within the group (default: hostname-pid)")
	cmd.Flags().Duration("claim-min-idle", queue.DefaultClaimMinIdle,
		"Idle time after which a pending job is retried")
	cmd.Flags().Int("max-deliveries", queue.DefaultMaxDeliveries,
		"Attempts per job before it is dropped")
	cmd.Flags().String("metrics-addr", config.DefaultMetricsAddr,
		"Listen address of the metrics endpoint (empty disables it)")

	return cmd
}

// runWorkerCmd executes the worker command.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cmd, cfg)

	consumerID, err := cmd.Flags().GetString("consumer")
	if err != nil {
		return err
	}
	if consumerID == "" {
		consumerID = defaultConsumerID()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runWorker(ctx, cfg, consumerID, logger)
}

// defaultConsumerID names the consumer after the host and process.
func defaultConsumerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "linkscan"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// runWorker consumes jobs until ctx is cancelled.
func runWorker(ctx context.Context, cfg *config.Config, consumerID string, logger *slog.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	streams, err := newStreamsClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer streams.Close()

	consumer, err := queue.NewConsumer(streams, queue.ConsumerConfig{
		ConsumerGroup: cfg.ConsumerGroup,
		ConsumerID:    consumerID,
		ClaimMinIdle:  cfg.ClaimMinIdle,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	worker := queue.NewWorker(consumer,
		queue.WithMaxDeliveries(cfg.MaxDeliveries),
		queue.WithWorkerMetrics(m),
		queue.WithWorkerLogger(logger),
	)

	orch := newOrchestrator(cfg, store, client, m, logger)

	logger.Info("starting worker",
		"stream", streams.StreamName(),
		"group", consumer.ConsumerGroup(),
		"consumer", consumer.ConsumerID(),
		"metrics_addr", cfg.MetricsAddr,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx, scanHandler(orch, store, logger))
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, metrics.Handler(registry), logger)
		})
	}
	return g.Wait()
}

// scanHandler adapts the orchestrator to the queue worker.
//
// A seed failure that was recorded is a finished scan and is acknowledged.
// A job for a scan that no longer exists can never succeed and is dropped.
// Everything else leaves the job pending for a retry.
func scanHandler(runner pipeline.JobRunner, scans scanStatusReader, logger *slog.Logger) queue.Handler {
	return func(ctx context.Context, job model.Job) error {
		err := runner.Run(ctx, job)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, pipeline.ErrScanNotFound):
			return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
		case errors.Is(err, crawler.ErrSeedFetch):
			scan, getErr := scans.GetScan(ctx, job.ScanID)
			if getErr == nil && scan.Status == model.StatusFailed {
				logger.Debug("seed fetch failure recorded", "scan_id", job.ScanID, "error", err)
				return nil
			}
			return err
		default:
			return err
		}
	}
}

// serveMetrics serves handler at /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	return nil
}

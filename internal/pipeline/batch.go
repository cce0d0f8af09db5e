package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// JobRunner executes one scan job.
type JobRunner interface {
	Run(ctx context.Context, job model.Job) error
}

// BatchResult is the outcome of one job in a batch.
type BatchResult struct {
	Job model.Job
	Err error
}

// BatchRunner executes several scan jobs concurrently.
//
// Design decision: We keep batching out of the Orchestrator so that a single
// job stays a single sequential execution, and the batch can pick its own
// concurrency independently of the per-scan check concurrency.
type BatchRunner struct {
	runner      JobRunner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of concurrent scans.
// Default is 4 if not specified.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner around runner.
func NewBatchRunner(runner JobRunner, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		runner:      runner,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// RunAll executes every job and returns their results in input order.
// A failing job never cancels the others.
func (b *BatchRunner) RunAll(ctx context.Context, jobs []model.Job) []BatchResult {
	results := make([]BatchResult, len(jobs))
	b.RunAllWithCallback(ctx, jobs, func(r BatchResult, i int) {
		results[i] = r
	})
	return results
}

// RunAllWithCallback executes every job and calls callback as each one
// finishes. The callback runs on the job's goroutine and must be safe for
// concurrent use.
func (b *BatchRunner) RunAllWithCallback(ctx context.Context, jobs []model.Job, callback func(r BatchResult, index int)) {
	b.logger.Info("starting batch",
		"total_scans", len(jobs),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			var err error
			select {
			case <-ctx.Done():
				err = ctx.Err()
			default:
				err = b.runner.Run(ctx, job)
			}
			if err != nil {
				b.logger.Warn("scan failed in batch",
					"scan_id", job.ScanID,
					"url", job.URL,
					"error", err,
				)
			}
			callback(BatchResult{Job: job, Err: err}, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	b.logger.Info("batch complete",
		"total_scans", len(jobs),
		"elapsed", time.Since(startTime),
	)
}

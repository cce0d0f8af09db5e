package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
)

// Store is the persistence the orchestrator needs.
type Store interface {
	ItemWriter
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	StartScan(ctx context.Context, id string, startedAt time.Time) error
	InsertItem(ctx context.Context, item *model.ScanItem) error
	CompleteScan(ctx context.Context, id string, summary model.Summary, finishedAt time.Time) error
	FailScan(ctx context.Context, id string, finishedAt time.Time) error
}

// Orchestrator executes scan jobs and drives the scan lifecycle.
//
// A run moves the scan QUEUED -> RUNNING -> COMPLETED, or to FAILED when the
// seed page cannot be fetched. Any other error is returned with the scan
// left RUNNING so that a re-delivered job can drive it again; StartScan
// clears partial items when that happens.
type Orchestrator struct {
	store       Store
	fetcher     SeedFetcher
	checker     LinkChecker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	batchSize   int
	scanTimeout time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics records scan and check metrics.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPersistBatchSize sets how many items are written per transaction.
func WithPersistBatchSize(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithScanTimeout bounds the seed fetch and the probing of one scan.
// Persistence is not bounded. Zero disables the bound.
func WithScanTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scanTimeout = d
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store Store, fetcher SeedFetcher, checker LinkChecker, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		checker:   checker,
		now:       time.Now,
		batchSize: DefaultPersistBatchSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// steps builds the pipeline for one run.
func (o *Orchestrator) steps() *Pipeline {
	p := New(WithLogger(o.logger))
	p.AddSteps(
		NewFetchSeedStep(o.fetcher, o.logger),
		NewExtractLinksStep(),
		NewCheckLinksStep(o.checker, o.metrics, o.logger),
		NewPersistItemsStep(o.store, o.batchSize, o.now, o.metrics),
	)
	return p
}

// Run executes job to a terminal state.
//
// It returns nil when the scan completed or was already terminal, an error
// wrapping crawler.ErrSeedFetch when the scan was marked FAILED, and any
// other error when the scan was left RUNNING.
func (o *Orchestrator) Run(ctx context.Context, job model.Job) error {
	job = job.Normalize()

	scan, err := o.store.GetScan(ctx, job.ScanID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrScanNotFound, job.ScanID)
		}
		return fmt.Errorf("failed to load scan: %w", err)
	}
	if scan.Status.Terminal() {
		o.logger.Info("scan already finished, skipping job",
			"scan_id", scan.ID,
			"status", scan.Status,
		)
		return nil
	}

	startedAt := o.now()
	if err := o.store.StartScan(ctx, job.ScanID, startedAt); err != nil {
		return fmt.Errorf("failed to mark scan running: %w", err)
	}
	o.metrics.ScanStarted()

	steps := o.steps()
	logger := o.logger.With("scan_id", job.ScanID, "url", job.URL)
	logger.Info("scan started",
		"max_links", job.MaxLinks,
		"concurrency", job.Concurrency,
		"steps", steps.StepNames(),
	)

	run := NewRun(job, startedAt)
	if o.scanTimeout > 0 {
		run.Deadline = startedAt.Add(o.scanTimeout)
	}

	if err := steps.Execute(ctx, run); err != nil {
		if errors.Is(err, crawler.ErrSeedFetch) && ctx.Err() == nil {
			return o.fail(ctx, logger, run, err)
		}
		o.metrics.ScanFinished(metrics.ScanAborted, o.now().Sub(startedAt))
		logger.Error("scan aborted, left running",
			"persisted", run.Persisted,
			"error", err,
		)
		return err
	}

	finishedAt := o.now()
	summary := model.Summarize(run.Results, finishedAt.Sub(startedAt))
	if err := o.store.CompleteScan(ctx, job.ScanID, summary, finishedAt); err != nil {
		o.metrics.ScanFinished(metrics.ScanAborted, finishedAt.Sub(startedAt))
		return fmt.Errorf("failed to mark scan completed: %w", err)
	}
	o.metrics.ScanFinished(metrics.ScanCompleted, finishedAt.Sub(startedAt))

	logger.Info("scan completed",
		"total_links", summary.TotalLinks,
		"ok", summary.OKCount,
		"broken", summary.BrokenCount,
		"duration_ms", summary.DurationMs,
	)
	return nil
}

// fail records the sentinel item, marks the scan FAILED and returns cause.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, run *Run, cause error) error {
	finishedAt := o.now()
	sentinel := model.NewSentinelItem(run.Job.ScanID, run.Job.URL, cause, finishedAt)

	if err := o.store.InsertItem(ctx, sentinel); err != nil {
		o.metrics.ScanFinished(metrics.ScanAborted, finishedAt.Sub(run.StartedAt))
		return errors.Join(cause, fmt.Errorf("failed to persist sentinel item: %w", err))
	}
	if err := o.store.FailScan(ctx, run.Job.ScanID, finishedAt); err != nil {
		o.metrics.ScanFinished(metrics.ScanAborted, finishedAt.Sub(run.StartedAt))
		return errors.Join(cause, fmt.Errorf("failed to mark scan failed: %w", err))
	}
	o.metrics.ScanFinished(metrics.ScanFailed, finishedAt.Sub(run.StartedAt))
	o.metrics.ItemsPersisted(1)

	logger.Warn("scan failed", "error", cause)
	return cause
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
)

// Step names, in execution order.
const (
	StepFetchSeed    = "fetch_seed"
	StepExtractLinks = "extract_links"
	StepCheckLinks   = "check_links"
	StepPersistItems = "persist_items"
)

// DefaultPersistBatchSize is the number of items written per transaction.
const DefaultPersistBatchSize = 100

// SeedFetcher retrieves the seed page. Errors must wrap crawler.ErrSeedFetch.
type SeedFetcher interface {
	Fetch(ctx context.Context, url string) (*crawler.Page, error)
}

// ItemWriter stores scan items.
type ItemWriter interface {
	InsertItems(ctx context.Context, items []*model.ScanItem) error
}

// FetchSeedStep downloads the seed page into run.Page.
type FetchSeedStep struct {
	fetcher SeedFetcher
	logger  *slog.Logger
}

// NewFetchSeedStep creates the seed fetching step.
func NewFetchSeedStep(fetcher SeedFetcher, logger *slog.Logger) *FetchSeedStep {
	return &FetchSeedStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchSeedStep) Name() string {
	return StepFetchSeed
}

// Do executes the step.
func (s *FetchSeedStep) Do(ctx context.Context, run *Run) error {
	ctx, cancel := run.networkContext(ctx)
	defer cancel()

	page, err := s.fetcher.Fetch(ctx, run.Job.URL)
	if err != nil {
		return err
	}
	run.Page = page

	s.logger.Debug("seed page fetched",
		"scan_id", run.Job.ScanID,
		"final_url", page.FinalURL,
		"bytes", len(page.Body),
	)
	return nil
}

// ExtractLinksStep fills run.Links from the seed page.
type ExtractLinksStep struct{}

// NewExtractLinksStep creates the link extraction step.
func NewExtractLinksStep() *ExtractLinksStep {
	return &ExtractLinksStep{}
}

// Name returns the step name.
func (s *ExtractLinksStep) Name() string {
	return StepExtractLinks
}

// Do executes the step.
func (s *ExtractLinksStep) Do(_ context.Context, run *Run) error {
	if run.Page == nil {
		return ErrNoSeedPage
	}
	base := run.Page.FinalURL
	if base == "" {
		base = run.Job.URL
	}
	run.Links = crawler.Extract(run.Page.Body, base, run.Job.MaxLinks)
	return nil
}

// CheckLinksStep checks every link in run.Links.
type CheckLinksStep struct {
	checker LinkChecker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCheckLinksStep creates the probing step.
func NewCheckLinksStep(checker LinkChecker, m *metrics.Metrics, logger *slog.Logger) *CheckLinksStep {
	return &CheckLinksStep{checker: checker, metrics: m, logger: logger}
}

// Name returns the step name.
func (s *CheckLinksStep) Name() string {
	return StepCheckLinks
}

// Do executes the step. The job's concurrency bounds the checks in flight.
func (s *CheckLinksStep) Do(ctx context.Context, run *Run) error {
	ctx, cancel := run.networkContext(ctx)
	defer cancel()

	fanout := NewFanout(s.checker,
		WithFanoutConcurrency(run.Job.Concurrency),
		WithFanoutMetrics(s.metrics),
		WithFanoutLogger(s.logger),
	)
	run.Results = fanout.CheckAll(ctx, run.Links)
	return nil
}

// PersistItemsStep writes run.Results in fixed-size batches.
type PersistItemsStep struct {
	writer    ItemWriter
	batchSize int
	now       func() time.Time
	metrics   *metrics.Metrics
}

// NewPersistItemsStep creates the persistence step.
func NewPersistItemsStep(writer ItemWriter, batchSize int, now func() time.Time, m *metrics.Metrics) *PersistItemsStep {
	if batchSize <= 0 {
		batchSize = DefaultPersistBatchSize
	}
	if now == nil {
		now = time.Now
	}
	return &PersistItemsStep{writer: writer, batchSize: batchSize, now: now, metrics: m}
}

// Name returns the step name.
func (s *PersistItemsStep) Name() string {
	return StepPersistItems
}

// Do executes the step. Each batch is one write; a failed batch stops the
// step and leaves the earlier batches in place.
func (s *PersistItemsStep) Do(ctx context.Context, run *Run) error {
	for start := 0; start < len(run.Results); start += s.batchSize {
		end := min(start+s.batchSize, len(run.Results))

		now := s.now()
		items := make([]*model.ScanItem, 0, end-start)
		for _, res := range run.Results[start:end] {
			items = append(items, model.NewScanItem(run.Job.ScanID, res, now))
		}

		if err := s.writer.InsertItems(ctx, items); err != nil {
			return fmt.Errorf("failed to persist items %d-%d: %w", start, end-1, err)
		}
		run.Persisted += len(items)
		s.metrics.ItemsPersisted(len(items))
	}
	return nil
}

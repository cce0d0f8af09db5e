// Package intake creates scans and hands their jobs to an executor.
//
// Submit and Retry are the only ways a scan enters the QUEUED state. Where
// the job goes next is decided by the Enqueuer: the Redis producer for the
// worker deployment, or an InlineEnqueuer that runs the scan in-process.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// Store is the persistence the service needs.
type Store interface {
	CreateScan(ctx context.Context, scan *model.Scan) error
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	ResetScan(ctx context.Context, id string) error
}

// Enqueuer hands a job to whatever executes it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.Job) (string, error)
}

// Defaults are the caps used when a request does not set its own.
type Defaults struct {
	MaxLinks    int
	Concurrency int
}

// Service creates and retries scans.
type Service struct {
	store    Store
	enqueuer Enqueuer
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults sets the caps applied when a request leaves them at zero.
func WithDefaults(d Defaults) Option {
	return func(s *Service) {
		s.defaults = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(store Store, enqueuer Enqueuer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		enqueuer: enqueuer,
		defaults: Defaults{
			MaxLinks:    model.DefaultMaxLinks,
			Concurrency: model.DefaultConcurrency,
		},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a QUEUED scan for rawURL and enqueues its job.
// Zero caps take the configured defaults; all caps are clamped to their limits.
func (s *Service) Submit(ctx context.Context, rawURL string, maxLinks, concurrency int) (*model.Scan, error) {
	seed := strings.TrimSpace(rawURL)
	if err := model.ValidateSeedURL(seed); err != nil {
		return nil, err
	}

	scan := model.NewScan(seed, s.now())
	if err := s.store.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	job := s.job(scan, maxLinks, concurrency)
	if err := s.enqueue(ctx, job); err != nil {
		return scan, err
	}

	s.logger.Info("scan submitted",
		"scan_id", scan.ID,
		"url", scan.URL,
		"max_links", job.MaxLinks,
		"concurrency", job.Concurrency,
	)
	return scan, nil
}

// Retry moves a COMPLETED or FAILED scan back to QUEUED and enqueues a new
// job with the default caps.
func (s *Service) Retry(ctx context.Context, id string) (*model.Scan, error) {
	if err := s.store.ResetScan(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to reset scan: %w", err)
	}

	scan, err := s.store.GetScan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan: %w", err)
	}

	if err := s.enqueue(ctx, s.job(scan, 0, 0)); err != nil {
		return scan, err
	}

	s.logger.Info("scan retried", "scan_id", scan.ID, "url", scan.URL)
	return scan, nil
}

// job builds the job for scan, applying defaults and clamps.
func (s *Service) job(scan *model.Scan, maxLinks, concurrency int) model.Job {
	if maxLinks <= 0 {
		maxLinks = s.defaults.MaxLinks
	}
	if concurrency <= 0 {
		concurrency = s.defaults.Concurrency
	}
	return model.Job{
		ScanID:      scan.ID,
		URL:         scan.URL,
		MaxLinks:    model.ClampMaxLinks(maxLinks),
		Concurrency: model.ClampConcurrency(concurrency),
	}
}

func (s *Service) enqueue(ctx context.Context, job model.Job) error {
	if _, err := s.enqueuer.Enqueue(ctx, job); err != nil {
		// The scan stays QUEUED; a retry after a reset re-enqueues it.
		return fmt.Errorf("failed to enqueue scan %s: %w", job.ScanID, err)
	}
	return nil
}

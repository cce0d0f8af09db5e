package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
	"golang.org/x/sync/errgroup"
)

// LinkChecker checks a single URL. Implementations must be safe for
// concurrent use and must report failures in the result, not as errors.
type LinkChecker interface {
	Check(ctx context.Context, url string) model.LinkResult
}

// Fanout checks many URLs with a bounded number of checks in flight.
type Fanout struct {
	checker     LinkChecker
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithFanoutConcurrency sets the maximum number of simultaneous checks.
// The value is clamped into [1, model.ConcurrencyLimit].
func WithFanoutConcurrency(n int) FanoutOption {
	return func(p *Fanout) {
		p.concurrency = model.ClampConcurrency(n)
	}
}

// WithFanoutMetrics records per-check metrics.
func WithFanoutMetrics(m *metrics.Metrics) FanoutOption {
	return func(p *Fanout) {
		p.metrics = m
	}
}

// WithFanoutLogger sets the logger.
func WithFanoutLogger(logger *slog.Logger) FanoutOption {
	return func(p *Fanout) {
		p.logger = logger
	}
}

// NewFanout creates a Fanout that delegates each check to checker.
func NewFanout(checker LinkChecker, opts ...FanoutOption) *Fanout {
	p := &Fanout{
		checker:     checker,
		concurrency: model.DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Concurrency returns the configured concurrency ceiling.
func (p *Fanout) Concurrency() int {
	return p.concurrency
}

// CheckAll checks every URL and returns one result per input, where
// results[i] belongs to urls[i]. It waits for all checks to finish.
//
// Design decision: We use a plain errgroup without WithContext. Checks
// never return errors, so a failing link cannot cancel its siblings.
func (p *Fanout) CheckAll(ctx context.Context, urls []string) []model.LinkResult {
	results := make([]model.LinkResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			start := time.Now()
			res := p.checker.Check(ctx, u)
			// Each goroutine owns its index, no lock needed.
			results[i] = res
			p.metrics.LinkChecked(outcome(res), time.Since(start))
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	p.logger.Debug("checks finished",
		"links", len(urls),
		"concurrency", p.concurrency,
	)

	return results
}

// outcome maps a result to its metrics label.
func outcome(r model.LinkResult) string {
	switch {
	case r.OK:
		return metrics.OutcomeOK
	case r.Responded():
		return metrics.OutcomeBroken
	default:
		return metrics.OutcomeError
	}
}

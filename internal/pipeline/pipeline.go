package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/model"
)

// Run is the state shared by the steps of one scan execution.
type Run struct {
	// Job is the normalized job being executed.
	Job model.Job

	// StartedAt is when the scan was marked RUNNING.
	StartedAt time.Time

	// Deadline bounds network steps when a scan timeout is configured.
	// The zero value means no deadline.
	Deadline time.Time

	// Page is the fetched seed page.
	Page *crawler.Page

	// Links are the extracted candidate URLs.
	Links []string

	// Results holds one check result per link, in link order.
	Results []model.LinkResult

	// Persisted is the number of items written so far.
	Persisted int

	// PerformedSteps lists the steps that completed, in order.
	PerformedSteps []string
}

// NewRun creates the state for executing job.
func NewRun(job model.Job, startedAt time.Time) *Run {
	return &Run{
		Job:            job,
		StartedAt:      startedAt,
		PerformedSteps: make([]string, 0),
	}
}

// networkContext returns ctx bounded by the run deadline, if any.
func (r *Run) networkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, r.Deadline)
}

// Step is one stage of a scan.
//
// Design decision: We use an interface rather than function types because
// steps carry their own collaborators (fetcher, checker, store) and the
// Name() is needed for logging.
type Step interface {
	// Do executes the step. It reads and extends run.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and stops at the first error, since
// every step consumes what the previous one left in run.
//
// Cancellation is checked between steps; steps handle their own timeouts.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"scan_id", run.Job.ScanID,
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"scan_id", run.Job.ScanID,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"scan_id", run.Job.ScanID,
				"error", err,
			)
			return err
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

package intake

import (
	"context"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
)

// JobRunner executes a job to completion.
type JobRunner interface {
	Run(ctx context.Context, job model.Job) error
}

// InlineEnqueuer runs each job immediately instead of queueing it.
// The job's error is returned from Enqueue.
type InlineEnqueuer struct {
	runner JobRunner
}

// NewInlineEnqueuer creates an InlineEnqueuer around runner.
func NewInlineEnqueuer(runner JobRunner) *InlineEnqueuer {
	return &InlineEnqueuer{runner: runner}
}

// Enqueue runs job and returns its scan ID.
func (e *InlineEnqueuer) Enqueue(ctx context.Context, job model.Job) (string, error) {
	return job.ScanID, e.runner.Run(ctx, job)
}

// CollectingEnqueuer records jobs without running them, so that a caller
// can create several scans first and execute them as one batch.
type CollectingEnqueuer struct {
	mu   sync.Mutex
	jobs []model.Job
}

// Enqueue records job.
func (e *CollectingEnqueuer) Enqueue(_ context.Context, job model.Job) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job)
	return job.ScanID, nil
}

// Jobs returns the recorded jobs in enqueue order.
func (e *CollectingEnqueuer) Jobs() []model.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Job(nil), e.jobs...)
}

package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
)

const (
	// DefaultMaxDeliveries is how often a failing job is attempted before
	// it is dropped.
	DefaultMaxDeliveries = 5

	// readErrorBackoff is the pause after a failed read.
	readErrorBackoff = time.Second
)

// Handler processes one job. A nil return acknowledges the message.
type Handler func(ctx context.Context, job model.Job) error

// Worker runs jobs from a Consumer one at a time.
type Worker struct {
	consumer      *Consumer
	maxDeliveries int64
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithMaxDeliveries sets how many deliveries a failing job gets.
func WithMaxDeliveries(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxDeliveries = int64(n)
		}
	}
}

// WithWorkerMetrics records job outcomes.
func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a Worker reading from consumer.
func NewWorker(consumer *Consumer, opts ...WorkerOption) *Worker {
	w := &Worker{
		consumer:      consumer,
		maxDeliveries: DefaultMaxDeliveries,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until ctx is done. It returns nil on shutdown and an
// error only if the consumer group cannot be created.
//
// A job whose handler fails stays pending; it is retried once it has been
// idle for the consumer's ClaimMinIdle, up to the delivery limit.
func (w *Worker) Run(ctx context.Context, handler Handler) error {
	if err := w.consumer.Initialize(ctx); err != nil {
		return err
	}

	// Entries left pending by a crashed worker are reclaimed by Read.
	pending, err := w.consumer.PendingCount(ctx)
	if err != nil {
		w.logger.Warn("failed to count pending jobs", "error", err)
	}
	w.logger.Info("worker started",
		"group", w.consumer.ConsumerGroup(),
		"consumer", w.consumer.ConsumerID(),
		"max_deliveries", w.maxDeliveries,
		"pending", pending,
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		if _, err := w.Poll(ctx, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read jobs", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(readErrorBackoff):
			}
		}
	}
}

// Poll performs one read and handles every job it returned.
// It reports how many jobs were handled.
func (w *Worker) Poll(ctx context.Context, handler Handler) (int, error) {
	jobs, err := w.consumer.Read(ctx)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		w.handle(ctx, handler, job)
	}
	return len(jobs), nil
}

// handle runs one job and settles its message.
func (w *Worker) handle(ctx context.Context, handler Handler, job *ConsumedJob) {
	logger := w.logger.With(
		"message_id", job.MessageID,
		"scan_id", job.Job.ScanID,
		"deliveries", job.Deliveries,
	)

	if job.Deliveries > w.maxDeliveries {
		logger.Error("job exceeded delivery limit, dropping")
		w.ack(ctx, logger, job)
		w.metrics.JobHandled(metrics.JobDead)
		return
	}

	err := handler(ctx, job.Job)
	switch {
	case err == nil:
		w.ack(ctx, logger, job)
		w.metrics.JobHandled(metrics.JobAcked)
	case errors.Is(err, ErrPermanent):
		logger.Error("job failed permanently, dropping", "error", err)
		w.ack(ctx, logger, job)
		w.metrics.JobHandled(metrics.JobDead)
	default:
		logger.Warn("job failed, leaving pending for retry", "error", err)
		w.metrics.JobHandled(metrics.JobRetried)
	}
}

func (w *Worker) ack(ctx context.Context, logger *slog.Logger, job *ConsumedJob) {
	// Acknowledge even during shutdown; the work is already done.
	if err := w.consumer.Ack(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("failed to acknowledge job", "error", err)
	}
}

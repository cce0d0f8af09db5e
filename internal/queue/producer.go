package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nao1215/linkscan/internal/metrics"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	// JobDataField is the field name for serialized job data in stream messages.
	JobDataField = "job"

	// EnqueuedAtField is the field name for enqueue timestamp.
	EnqueuedAtField = "enqueued_at"

	// Default max stream length to prevent unbounded growth.
	defaultMaxStreamLen = 10000
)

// Producer enqueues scan jobs.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
	metrics      *metrics.Metrics
	now          func() time.Time
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	MaxStreamLen int64            // Approximate stream length cap (0 = default)
	Metrics      *metrics.Metrics // Optional
}

// NewProducer creates a new job producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}

	return &Producer{
		client:       client,
		maxStreamLen: maxLen,
		metrics:      cfg.Metrics,
		now:          time.Now,
	}
}

// Enqueue adds a job to the scan stream and returns the message ID.
func (p *Producer) Enqueue(ctx context.Context, job model.Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job: %w", err)
	}

	stream := p.client.StreamName()
	messageID, err := p.client.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxStreamLen,
		Approx: true,
		Values: map[string]any{
			JobDataField:    string(jobData),
			EnqueuedAtField: p.now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job to stream %s: %w", stream, err)
	}

	p.metrics.JobEnqueued()
	return messageID, nil
}

// Depth returns the number of entries in the stream, acknowledged or not.
func (p *Producer) Depth(ctx context.Context) (int64, error) {
	return p.client.client.XLen(ctx, p.client.StreamName()).Result()
}

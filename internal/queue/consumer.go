package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultConsumerGroup is the consumer group name.
	DefaultConsumerGroup = "scanners"

	// Default block timeout for reading from the stream.
	defaultBlockTimeout = 5 * time.Second

	// DefaultClaimMinIdle is how long a message stays pending before
	// another consumer may reclaim it.
	DefaultClaimMinIdle = time.Minute

	// Maximum pending messages to check at once.
	maxPendingCheck = 100
)

// Consumer reads scan jobs from the stream as part of a consumer group.
type Consumer struct {
	client        *StreamsClient
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
	logger        *slog.Logger
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	ConsumerGroup string        // Consumer group name
	ConsumerID    string        // Unique consumer identifier
	BlockTimeout  time.Duration // Block timeout for reads (0 = default)
	BatchSize     int64         // Number of messages per read (0 = 1)
	ClaimMinIdle  time.Duration // Min idle time before claiming (0 = default)
	Logger        *slog.Logger  // Optional
}

// ConsumedJob is a job read from the stream.
type ConsumedJob struct {
	MessageID  string
	Job        model.Job
	EnqueuedAt time.Time

	// Deliveries counts how many times the message was handed to a
	// consumer, including this one.
	Deliveries int64
}

// NewConsumer creates a new job consumer.
//
// The batch size defaults to 1. Scans are long; messages read ahead of
// the one being processed would go idle and be reclaimed by other workers.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, ErrMissingConsumerID
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = DefaultConsumerGroup
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = DefaultClaimMinIdle
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		client:        client,
		consumerGroup: group,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  blockTimeout,
		batchSize:     batchSize,
		claimMinIdle:  claimMinIdle,
		logger:        logger,
	}, nil
}

// Initialize creates the consumer group.
func (c *Consumer) Initialize(ctx context.Context) error {
	return c.client.CreateConsumerGroup(ctx, c.consumerGroup)
}

// Read returns the next jobs to process. Pending messages that have been
// idle for ClaimMinIdle are reclaimed before new messages are read.
// It returns no jobs and no error when the block timeout expires.
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedJob, error) {
	reclaimed, err := c.reclaimPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}
	return c.readNewMessages(ctx)
}

// Ack acknowledges a processed job.
func (c *Consumer) Ack(ctx context.Context, job *ConsumedJob) error {
	if err := c.client.client.XAck(ctx, c.client.StreamName(), c.consumerGroup, job.MessageID).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge message %s: %w", job.MessageID, err)
	}
	return nil
}

// PendingCount returns the number of delivered but unacknowledged messages.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	pending, err := c.client.client.XPending(ctx, c.client.StreamName(), c.consumerGroup).Result()
	if err != nil {
		if isNoMessages(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return pending.Count, nil
}

// ConsumerGroup returns the consumer group name.
func (c *Consumer) ConsumerGroup() string {
	return c.consumerGroup
}

// ConsumerID returns the consumer ID.
func (c *Consumer) ConsumerID() string {
	return c.consumerID
}

// readNewMessages reads messages never delivered to the group.
func (c *Consumer) readNewMessages(ctx context.Context) ([]*ConsumedJob, error) {
	streams, err := c.client.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerID,
		Streams:  []string{c.client.StreamName(), ">"},
		Count:    c.batchSize,
		Block:    c.blockTimeout,
	}).Result()
	if err != nil {
		if isNoMessages(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var jobs []*ConsumedJob
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if job := c.accept(ctx, msg, 1); job != nil {
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

// reclaimPending claims messages that exceeded the idle threshold.
func (c *Consumer) reclaimPending(ctx context.Context) ([]*ConsumedJob, error) {
	stream := c.client.StreamName()

	pending, err := c.client.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  c.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  maxPendingCheck,
	}).Result()
	if err != nil {
		if isNoMessages(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}

	deliveries := make(map[string]int64)
	var ids []string
	for _, entry := range pending {
		if entry.Idle < c.claimMinIdle {
			continue
		}
		deliveries[entry.ID] = entry.RetryCount + 1
		ids = append(ids, entry.ID)
		if int64(len(ids)) == c.batchSize {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	claimed, err := c.client.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    c.consumerGroup,
		Consumer: c.consumerID,
		MinIdle:  c.claimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending messages: %w", err)
	}

	var jobs []*ConsumedJob
	for _, msg := range claimed {
		job := c.accept(ctx, msg, deliveries[msg.ID])
		if job == nil {
			continue
		}
		c.logger.Info("reclaimed pending job",
			"message_id", msg.ID,
			"scan_id", job.Job.ScanID,
			"deliveries", job.Deliveries,
		)
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// accept parses msg. Malformed messages are acknowledged and dropped,
// since no consumer will ever be able to process them.
func (c *Consumer) accept(ctx context.Context, msg redis.XMessage, deliveries int64) *ConsumedJob {
	job, err := parseMessage(msg)
	if err != nil {
		c.logger.Error("dropping malformed message",
			"message_id", msg.ID,
			"error", err,
		)
		if ackErr := c.client.client.XAck(ctx, c.client.StreamName(), c.consumerGroup, msg.ID).Err(); ackErr != nil {
			c.logger.Warn("failed to acknowledge malformed message",
				"message_id", msg.ID,
				"error", ackErr,
			)
		}
		return nil
	}
	job.Deliveries = deliveries
	return job
}

// parseMessage parses a single stream message into a ConsumedJob.
func parseMessage(msg redis.XMessage) (*ConsumedJob, error) {
	jobData, ok := msg.Values[JobDataField].(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q field", ErrMalformedMessage, JobDataField)
	}

	var job model.Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	consumed := &ConsumedJob{
		MessageID: msg.ID,
		Job:       job.Normalize(),
	}
	if enqueued, ok := msg.Values[EnqueuedAtField].(string); ok {
		if t, err := time.Parse(time.RFC3339, enqueued); err == nil {
			consumed.EnqueuedAt = t
		}
	}
	return consumed, nil
}

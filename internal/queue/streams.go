// Package queue delivers scan jobs through Redis Streams.
//
// A Producer appends jobs to a single stream, Consumers in a consumer group
// read them, and a Worker runs each job through a handler. Jobs that fail
// stay pending and are reclaimed by any consumer once they have been idle for
// ClaimMinIdle, which gives at-least-once delivery with a built-in backoff.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Default connection timeout for Redis operations.
	defaultConnectionTimeout = 2 * time.Second

	// DefaultPrefix is the stream key prefix.
	DefaultPrefix = "linkscan"

	// scanStream is the stream name suffix for scan jobs.
	scanStream = "scans"
)

// StreamsClient wraps a Redis client with streams-specific operations.
type StreamsClient struct {
	client *redis.Client
	prefix string
}

// StreamsConfig holds configuration for the Redis Streams client.
type StreamsConfig struct {
	// URL is a redis:// or rediss:// URL, including password and DB.
	URL string `json:"-"`

	// Prefix is the stream key prefix (e.g., "linkscan").
	Prefix string
}

// NewStreamsClient connects to Redis and verifies the connection.
func NewStreamsClient(ctx context.Context, cfg StreamsConfig) (*StreamsClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRedisURL, err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStreamsClientFromRedis(client, cfg.Prefix), nil
}

// NewStreamsClientFromRedis creates a StreamsClient from an existing Redis client.
func NewStreamsClientFromRedis(client *redis.Client, prefix string) *StreamsClient {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &StreamsClient{
		client: client,
		prefix: prefix,
	}
}

// StreamName returns the full name of the scan job stream.
func (c *StreamsClient) StreamName() string {
	return fmt.Sprintf("%s:jobs:%s", c.prefix, scanStream)
}

// Close closes the underlying Redis client.
func (c *StreamsClient) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *StreamsClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CreateConsumerGroup creates a consumer group for the stream if it doesn't exist.
func (c *StreamsClient) CreateConsumerGroup(ctx context.Context, group string) error {
	// Start from the beginning so jobs enqueued before the first worker are seen.
	err := c.client.XGroupCreateMkStream(ctx, c.StreamName(), group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// isBusyGroup reports whether err says the group already exists.
func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// isNoMessages reports whether err only means that nothing was available.
func isNoMessages(err error) bool {
	return errors.Is(err, redis.Nil)
}

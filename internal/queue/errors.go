package queue

import "errors"

var (
	// ErrInvalidRedisURL is returned when the Redis URL cannot be parsed.
	ErrInvalidRedisURL = errors.New("invalid redis url")

	// ErrMissingConsumerID is returned when a consumer has no identifier.
	ErrMissingConsumerID = errors.New("consumer ID is required")

	// ErrMalformedMessage is returned when a stream entry carries no valid job.
	ErrMalformedMessage = errors.New("malformed job message")

	// ErrPermanent marks a handler error that retrying cannot fix.
	// The message is acknowledged instead of being left pending.
	ErrPermanent = errors.New("permanent job failure")
)

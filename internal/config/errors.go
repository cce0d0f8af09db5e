package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and ApplyEnv so callers can
// use errors.Is() while still getting a human-readable message.
var (
	// ErrInvalidMaxLinks is returned when the default link cap is negative.
	ErrInvalidMaxLinks = errors.New("invalid max links: must be non-negative")

	// ErrInvalidConcurrency is returned when the default concurrency is negative.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidTimeout is returned when the check timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidFetchTimeout is returned when the seed fetch timeout is not positive.
	ErrInvalidFetchTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidScanTimeout is returned when the scan timeout is negative.
	// Use 0 to disable the scan deadline.
	ErrInvalidScanTimeout = errors.New("invalid scan timeout: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxDeliveries is returned when the delivery limit is not positive.
	ErrInvalidMaxDeliveries = errors.New("invalid max deliveries: must be positive")

	// ErrInvalidClaimMinIdle is returned when the retry backoff is not positive.
	ErrInvalidClaimMinIdle = errors.New("invalid claim idle time: must be positive")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)

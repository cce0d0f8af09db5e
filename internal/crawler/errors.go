package crawler

import (
	"errors"
	"fmt"
)

// ErrSeedFetch is returned when the seed page cannot be retrieved.
// Both transport errors and non-2xx responses wrap it.
var ErrSeedFetch = errors.New("seed fetch failed")

// StatusError reports a seed response outside the 2xx range.
type StatusError struct {
	// URL is the requested seed URL.
	URL string

	// StatusCode is the final response status after redirects.
	StatusCode int

	// Status is the full status line, e.g. "404 Not Found".
	Status string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %s", ErrSeedFetch, e.URL, e.Status)
}

// Unwrap allows errors.Is(err, ErrSeedFetch).
func (e *StatusError) Unwrap() error {
	return ErrSeedFetch
}

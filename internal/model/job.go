package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Link and concurrency caps applied by the intake layer.
const (
	// DefaultMaxLinks is the link cap used when the caller supplies none.
	DefaultMaxLinks = 800

	// MaxLinksLimit is the hard upper bound for the link cap.
	MaxLinksLimit = 5000

	// DefaultConcurrency is the concurrency cap used when the caller supplies none.
	DefaultConcurrency = 16

	// ConcurrencyLimit is the hard upper bound for simultaneous checks.
	ConcurrencyLimit = 64
)

// Job validation errors.
var (
	// ErrMissingScanID is returned when a job has no scan identifier.
	ErrMissingScanID = errors.New("job has no scan id")

	// ErrInvalidSeedURL is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeedURL = errors.New("seed url must be an absolute http or https url")
)

// Job is the descriptor delivered to a worker to execute one scan.
type Job struct {
	ScanID      string `json:"scanId"`
	URL         string `json:"url"`
	MaxLinks    int    `json:"maxLinks"`
	Concurrency int    `json:"concurrency"`
}

// Normalize clamps both caps into their allowed ranges.
// A non-positive cap falls back to its default.
func (j Job) Normalize() Job {
	j.MaxLinks = ClampMaxLinks(j.MaxLinks)
	j.Concurrency = ClampConcurrency(j.Concurrency)
	return j
}

// Validate checks that the job can be executed.
func (j Job) Validate() error {
	if strings.TrimSpace(j.ScanID) == "" {
		return ErrMissingScanID
	}
	return ValidateSeedURL(j.URL)
}

// ClampMaxLinks returns n clamped into [1, MaxLinksLimit], or the default
// when n is not positive.
func ClampMaxLinks(n int) int {
	if n <= 0 {
		return DefaultMaxLinks
	}
	return min(n, MaxLinksLimit)
}

// ClampConcurrency returns n clamped into [1, ConcurrencyLimit], or the
// default when n is not positive.
func ClampConcurrency(n int) int {
	if n <= 0 {
		return DefaultConcurrency
	}
	return min(n, ConcurrencyLimit)
}

// ValidateSeedURL checks that raw is an absolute http or https URL with a host.
func ValidateSeedURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidSeedURL, raw)
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a scan.
type ScanStatus string

const (
	// StatusQueued means the scan was requested and waits for a worker.
	StatusQueued ScanStatus = "QUEUED"

	// StatusRunning means a worker is executing the scan.
	StatusRunning ScanStatus = "RUNNING"

	// StatusCompleted means every discovered link was checked and recorded.
	StatusCompleted ScanStatus = "COMPLETED"

	// StatusFailed means the seed page could not be fetched.
	StatusFailed ScanStatus = "FAILED"
)

// AllStatuses returns every scan status in lifecycle order.
func AllStatuses() []ScanStatus {
	return []ScanStatus{StatusQueued, StatusRunning, StatusCompleted, StatusFailed}
}

// IsValid reports whether s is a known status.
func (s ScanStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no worker will touch the scan again
// until it is explicitly retried.
func (s ScanStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
//
// RUNNING -> RUNNING is accepted so that a re-delivered job can re-drive a
// scan whose previous worker crashed. Terminal states only move back to
// QUEUED through an explicit retry.
func (s ScanStatus) CanTransitionTo(next ScanStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusRunning || next == StatusCompleted || next == StatusFailed
	case StatusCompleted, StatusFailed:
		return next == StatusQueued
	default:
		return false
	}
}

// String returns the status name.
func (s ScanStatus) String() string {
	return string(s)
}

// Scan is one scan request and its execution state.
//
// Nullable columns are pointers so that "not yet known" is distinguishable
// from a zero value in reports and JSON output.
type Scan struct {
	// ID is the opaque unique identifier (UUID).
	ID string `json:"id"`

	// URL is the seed page whose links are checked.
	URL string `json:"url"`

	// Status is the lifecycle state.
	Status ScanStatus `json:"status"`

	// CreatedAt is when the scan was requested.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the latest execution began.
	StartedAt *time.Time `json:"started_at"`

	// FinishedAt is when the latest execution reached a terminal state.
	FinishedAt *time.Time `json:"finished_at"`

	// DurationMs is the wall-clock duration of a completed execution.
	DurationMs *int64 `json:"duration_ms"`

	// TotalLinks is the number of distinct links checked.
	TotalLinks int `json:"total_links"`

	// OKCount is the number of reachable links.
	OKCount int `json:"ok_count"`

	// BrokenCount is TotalLinks - OKCount.
	BrokenCount int `json:"broken_count"`
}

// NewScan creates a QUEUED scan with a fresh identifier.
func NewScan(url string, now time.Time) *Scan {
	return &Scan{
		ID:        uuid.New().String(),
		URL:       url,
		Status:    StatusQueued,
		CreatedAt: now.UTC(),
	}
}

// Duration returns the recorded duration, or zero if none was recorded.
func (s *Scan) Duration() time.Duration {
	if s.DurationMs == nil {
		return 0
	}
	return time.Duration(*s.DurationMs) * time.Millisecond
}

// Summary holds the aggregates written when a scan completes.
type Summary struct {
	TotalLinks  int   `json:"total_links"`
	OKCount     int   `json:"ok_count"`
	BrokenCount int   `json:"broken_count"`
	DurationMs  int64 `json:"duration_ms"`
}

// Summarize computes the completion aggregates for a set of results.
func Summarize(results []LinkResult, elapsed time.Duration) Summary {
	ok := 0
	for _, r := range results {
		if r.OK {
			ok++
		}
	}
	return Summary{
		TotalLinks:  len(results),
		OKCount:     ok,
		BrokenCount: len(results) - ok,
		DurationMs:  elapsed.Milliseconds(),
	}
}

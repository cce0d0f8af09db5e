package model

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Item validation errors.
var (
	// ErrOKWithoutStatus is returned when an ok item has no HTTP status.
	ErrOKWithoutStatus = errors.New("ok item must carry a status code")

	// ErrOKWithErrorStatus is returned when an ok item has a status >= 400.
	ErrOKWithErrorStatus = errors.New("ok item must carry a status code below 400")

	// ErrOKWithError is returned when an ok item also carries a fetch error.
	ErrOKWithError = errors.New("ok item must not carry an error")

	// ErrBrokenWithoutReason is returned when a broken item has neither an
	// error status nor a fetch error.
	ErrBrokenWithoutReason = errors.New("broken item must carry a status code >= 400 or an error")
)

// LinkResult is the outcome of checking one URL.
//
// StatusCode is zero when no HTTP response was received; in that case
// Error describes the transport failure and StatusText/Redirected are unset.
type LinkResult struct {
	URL        string `json:"url"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	StatusText string `json:"status_text,omitempty"`
	Redirected bool   `json:"redirected,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Responded reports whether the check received an HTTP response.
func (r LinkResult) Responded() bool {
	return r.StatusCode != 0
}

// IsOKStatus reports whether code counts as reachable.
func IsOKStatus(code int) bool {
	return code > 0 && code < http.StatusBadRequest
}

// ScanItem is the persisted outcome of one checked link.
type ScanItem struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	URL        string    `json:"url"`
	OK         bool      `json:"ok"`
	StatusCode *int      `json:"status_code"`
	StatusText *string   `json:"status_text"`
	Redirected *bool     `json:"redirected"`
	Error      *string   `json:"error"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewScanItem converts a check result into an item owned by scanID.
func NewScanItem(scanID string, r LinkResult, now time.Time) *ScanItem {
	item := &ScanItem{
		ID:        uuid.New().String(),
		ScanID:    scanID,
		URL:       r.URL,
		OK:        r.OK,
		CreatedAt: now.UTC(),
	}
	if r.Responded() {
		code := r.StatusCode
		text := r.StatusText
		redirected := r.Redirected
		item.StatusCode = &code
		item.StatusText = &text
		item.Redirected = &redirected
	}
	if r.Error != "" {
		msg := r.Error
		item.Error = &msg
	}
	return item
}

// NewSentinelItem creates the single item recorded when the seed page itself
// could not be fetched. It stands for the failure of the whole scan.
func NewSentinelItem(scanID, seedURL string, cause error, now time.Time) *ScanItem {
	msg := "seed fetch failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &ScanItem{
		ID:        uuid.New().String(),
		ScanID:    scanID,
		URL:       seedURL,
		OK:        false,
		Error:     &msg,
		CreatedAt: now.UTC(),
	}
}

// Validate checks the ok/status/error invariant.
func (i *ScanItem) Validate() error {
	if i.OK {
		if i.StatusCode == nil {
			return fmt.Errorf("%s: %w", i.URL, ErrOKWithoutStatus)
		}
		if *i.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("%s: %w", i.URL, ErrOKWithErrorStatus)
		}
		if i.Error != nil {
			return fmt.Errorf("%s: %w", i.URL, ErrOKWithError)
		}
		return nil
	}
	hasErrorStatus := i.StatusCode != nil && *i.StatusCode >= http.StatusBadRequest
	if !hasErrorStatus && i.Error == nil {
		return fmt.Errorf("%s: %w", i.URL, ErrBrokenWithoutReason)
	}
	return nil
}

// Code returns the status code, or zero when none was recorded.
func (i *ScanItem) Code() int {
	if i.StatusCode == nil {
		return 0
	}
	return *i.StatusCode
}

// ErrorText returns the recorded error, or an empty string.
func (i *ScanItem) ErrorText() string {
	if i.Error == nil {
		return ""
	}
	return *i.Error
}

// Reason returns a short human-readable explanation of the outcome.
func (i *ScanItem) Reason() string {
	if i.Error != nil {
		return *i.Error
	}
	if i.StatusCode == nil {
		return ""
	}
	if i.StatusText != nil && *i.StatusText != "" {
		return fmt.Sprintf("%d %s", *i.StatusCode, *i.StatusText)
	}
	return fmt.Sprintf("%d", *i.StatusCode)
}

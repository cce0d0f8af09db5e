package model

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// TestNewScanItem tests conversion from a check result.
func TestNewScanItem(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("response received", func(t *testing.T) {
		t.Parallel()
		item := NewScanItem("scan-1", LinkResult{
			URL: "http://a", OK: true, StatusCode: 200, StatusText: "OK", Redirected: true,
		}, now)

		if item.ScanID != "scan-1" || item.URL != "http://a" || !item.OK {
			t.Fatalf("unexpected item: %+v", item)
		}
		if item.StatusCode == nil || *item.StatusCode != 200 {
			t.Errorf("StatusCode = %v, want 200", item.StatusCode)
		}
		if item.StatusText == nil || *item.StatusText != "OK" {
			t.Errorf("StatusText = %v, want OK", item.StatusText)
		}
		if item.Redirected == nil || !*item.Redirected {
			t.Error("Redirected should be true")
		}
		if item.Error != nil {
			t.Errorf("Error = %q, want nil", *item.Error)
		}
		if err := item.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()
		item := NewScanItem("scan-1", LinkResult{URL: "http://b", Error: "timeout after 10s"}, now)

		if item.StatusCode != nil || item.StatusText != nil || item.Redirected != nil {
			t.Error("status fields should be nil without a response")
		}
		if item.ErrorText() != "timeout after 10s" {
			t.Errorf("ErrorText() = %q", item.ErrorText())
		}
		if err := item.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

// TestNewSentinelItem tests the seed failure item.
func TestNewSentinelItem(t *testing.T) {
	t.Parallel()

	item := NewSentinelItem("scan-1", "https://seed.test", errors.New("connection refused"), time.Now())

	if item.OK {
		t.Error("sentinel must not be ok")
	}
	if item.URL != "https://seed.test" {
		t.Errorf("URL = %q", item.URL)
	}
	if item.StatusCode != nil || item.StatusText != nil || item.Redirected != nil {
		t.Error("sentinel must not carry status fields")
	}
	if item.ErrorText() != "connection refused" {
		t.Errorf("ErrorText() = %q", item.ErrorText())
	}
	if err := item.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	noCause := NewSentinelItem("scan-1", "https://seed.test", nil, time.Now())
	if noCause.Error == nil {
		t.Error("sentinel without cause must still carry an error")
	}
}

// TestScanItemValidate tests the ok/status/error invariant.
func TestScanItemValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		item    ScanItem
		wantErr error
	}{
		{"ok with 200", ScanItem{OK: true, StatusCode: intPtr(200)}, nil},
		{"ok with 301", ScanItem{OK: true, StatusCode: intPtr(301)}, nil},
		{"ok without status", ScanItem{OK: true}, ErrOKWithoutStatus},
		{"ok with 404", ScanItem{OK: true, StatusCode: intPtr(404)}, ErrOKWithErrorStatus},
		{"ok with error", ScanItem{OK: true, StatusCode: intPtr(200), Error: strPtr("x")}, ErrOKWithError},
		{"broken with 404", ScanItem{StatusCode: intPtr(404)}, nil},
		{"broken with error", ScanItem{Error: strPtr("dns lookup failed")}, nil},
		{"broken with both", ScanItem{StatusCode: intPtr(500), Error: strPtr("x")}, nil},
		{"broken with 200 only", ScanItem{StatusCode: intPtr(200)}, ErrBrokenWithoutReason},
		{"broken with nothing", ScanItem{}, ErrBrokenWithoutReason},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.item.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

// TestScanItemReason tests the human-readable outcome.
func TestScanItemReason(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		item ScanItem
		want string
	}{
		{"status with text", ScanItem{StatusCode: intPtr(404), StatusText: strPtr("Not Found")}, "404 Not Found"},
		{"status only", ScanItem{StatusCode: intPtr(599)}, "599"},
		{"error wins", ScanItem{StatusCode: intPtr(500), Error: strPtr("boom")}, "boom"},
		{"nothing", ScanItem{}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.item.Reason(); got != tc.want {
				t.Errorf("Reason() = %q, want %q", got, tc.want)
			}
		})
	}
}

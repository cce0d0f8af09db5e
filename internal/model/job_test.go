package model

import (
	"errors"
	"testing"
)

// TestJobNormalize tests cap clamping.
func TestJobNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		in              Job
		wantMaxLinks    int
		wantConcurrency int
	}{
		{"defaults", Job{}, DefaultMaxLinks, DefaultConcurrency},
		{"negative", Job{MaxLinks: -1, Concurrency: -5}, DefaultMaxLinks, DefaultConcurrency},
		{"within range", Job{MaxLinks: 10, Concurrency: 4}, 10, 4},
		{"at caps", Job{MaxLinks: 5000, Concurrency: 64}, 5000, 64},
		{"above caps", Job{MaxLinks: 9999, Concurrency: 1000}, MaxLinksLimit, ConcurrencyLimit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.in.Normalize()
			if got.MaxLinks != tc.wantMaxLinks {
				t.Errorf("MaxLinks = %d, want %d", got.MaxLinks, tc.wantMaxLinks)
			}
			if got.Concurrency != tc.wantConcurrency {
				t.Errorf("Concurrency = %d, want %d", got.Concurrency, tc.wantConcurrency)
			}
		})
	}
}

// TestJobValidate tests job validation.
func TestJobValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		job     Job
		wantErr error
	}{
		{"valid http", Job{ScanID: "1", URL: "http://example.com"}, nil},
		{"valid https with path", Job{ScanID: "1", URL: "https://example.com/a?b=c"}, nil},
		{"missing id", Job{URL: "http://example.com"}, ErrMissingScanID},
		{"ftp scheme", Job{ScanID: "1", URL: "ftp://example.com"}, ErrInvalidSeedURL},
		{"relative", Job{ScanID: "1", URL: "/path"}, ErrInvalidSeedURL},
		{"no host", Job{ScanID: "1", URL: "http://"}, ErrInvalidSeedURL},
		{"garbage", Job{ScanID: "1", URL: "http://[::1"}, ErrInvalidSeedURL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.job.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

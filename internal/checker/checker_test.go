package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/netclient"
)

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	client, err := netclient.New()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

// TestCheckStatuses tests classification of HTTP responses.
func TestCheckStatuses(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/head-405", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte("hello"))
	})
	mux.HandleFunc("/head-403", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/moved-gone", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/gone", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := New(newTestClient(t))

	testCases := []struct {
		path           string
		wantOK         bool
		wantStatus     int
		wantText       string
		wantRedirected bool
		wantErr        string
	}{
		{"/ok", true, 200, "OK", false, ""},
		{"/head-405", true, 200, "OK", false, ""},
		{"/head-403", true, 200, "OK", false, ""},
		{"/gone", false, 404, "Not Found", false, ""},
		{"/error", false, 500, "Internal Server Error", false, ""},
		{"/moved", true, 200, "OK", true, ""},
		{"/moved-gone", false, 404, "Not Found", true, ""},
		{"/loop", false, 0, "", false, "too many redirects"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			got := c.Check(context.Background(), server.URL+tc.path)
			if got.URL != server.URL+tc.path {
				t.Errorf("URL = %q", got.URL)
			}
			if got.OK != tc.wantOK {
				t.Errorf("OK = %v, want %v", got.OK, tc.wantOK)
			}
			if got.StatusCode != tc.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tc.wantStatus)
			}
			if got.StatusText != tc.wantText {
				t.Errorf("StatusText = %q, want %q", got.StatusText, tc.wantText)
			}
			if got.Redirected != tc.wantRedirected {
				t.Errorf("Redirected = %v, want %v", got.Redirected, tc.wantRedirected)
			}
			if tc.wantErr == "" && got.Error != "" {
				t.Errorf("Error = %q, want none", got.Error)
			}
			if tc.wantErr != "" && !strings.Contains(got.Error, tc.wantErr) {
				t.Errorf("Error = %q, want it to contain %q", got.Error, tc.wantErr)
			}
		})
	}
}

// TestCheckFallbackMethods tests that GET is only sent after a rejected HEAD.
func TestCheckFallbackMethods(t *testing.T) {
	t.Parallel()

	var heads, gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			heads.Add(1)
			if r.URL.Path == "/reject" {
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case http.MethodGet:
			gets.Add(1)
		}
	}))
	defer server.Close()

	c := New(newTestClient(t))

	c.Check(context.Background(), server.URL+"/accept")
	if heads.Load() != 1 || gets.Load() != 0 {
		t.Errorf("accept: heads=%d gets=%d, want 1/0", heads.Load(), gets.Load())
	}

	c.Check(context.Background(), server.URL+"/reject")
	if heads.Load() != 2 || gets.Load() != 1 {
		t.Errorf("reject: heads=%d gets=%d, want 2/1", heads.Load(), gets.Load())
	}
}

// TestCheckTimeout tests that a slow server yields a timeout result.
func TestCheckTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(newTestClient(t), WithTimeout(50*time.Millisecond))
	got := c.Check(context.Background(), server.URL)

	if got.OK {
		t.Error("expected not ok")
	}
	if got.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", got.StatusCode)
	}
	if got.Error != "timeout after 50ms" {
		t.Errorf("Error = %q, want %q", got.Error, "timeout after 50ms")
	}
}

// TestCheckCallerDeadline tests that a scan-level deadline is not reported
// as the per-attempt timeout.
func TestCheckCallerDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(newTestClient(t), WithTimeout(10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	got := c.Check(ctx, server.URL)

	if got.OK || got.StatusCode != 0 {
		t.Errorf("got %+v, want a failed check without status", got)
	}
	if got.Error != "scan deadline exceeded" {
		t.Errorf("Error = %q, want %q", got.Error, "scan deadline exceeded")
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if got := c.Check(cancelled, server.URL); got.Error != "canceled" {
		t.Errorf("Error = %q, want %q", got.Error, "canceled")
	}
}

// TestCheckTransportErrors tests errors that happen before any response.
func TestCheckTransportErrors(t *testing.T) {
	t.Parallel()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	c := New(newTestClient(t), WithTimeout(2*time.Second))

	testCases := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"connection refused", closedURL, "connection failed"},
		{"invalid url", "http://[::1", "invalid url"},
		{"unsupported scheme", "ftp://example.com/file", "unsupported protocol scheme"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := c.Check(context.Background(), tc.url)
			if got.OK || got.StatusCode != 0 {
				t.Errorf("expected failure without status, got %+v", got)
			}
			if !strings.Contains(got.Error, tc.wantErr) {
				t.Errorf("Error = %q, want it to contain %q", got.Error, tc.wantErr)
			}
		})
	}
}

// TestCheckUserAgent tests that the configured User-Agent is sent.
func TestCheckUserAgent(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	New(newTestClient(t), WithUserAgent("linkscan-test/2.0")).Check(context.Background(), server.URL)

	if got, _ := ua.Load().(string); got != "linkscan-test/2.0" {
		t.Errorf("User-Agent = %q, want linkscan-test/2.0", got)
	}
}

// TestNewNilClient tests that a nil client falls back to the default client.
func TestNewNilClient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	got := New(nil).Check(context.Background(), server.URL)
	if !got.OK {
		t.Errorf("expected ok, got %+v", got)
	}
}

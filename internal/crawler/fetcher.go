package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// Defaults for seed fetching.
const (
	// DefaultFetchTimeout bounds a single seed fetch.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxBodySize caps how much of the seed page is read.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// DefaultUserAgent identifies linkscan to the servers it scans.
	DefaultUserAgent = "linkscan/1.0 (+https://github.com/nao1215/linkscan)"
)

// Page is a fetched seed page.
type Page struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Links are resolved against it.
	FinalURL string

	// StatusCode is the final HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header of the final response.
	ContentType string

	// Body is the page content decoded to UTF-8.
	Body string
}

// Fetcher downloads seed pages.
//
// Design decision: the Fetcher does not own its http.Client. Redirect
// policy, proxying and per-host headers are configured once in netclient
// and shared with the checker.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	timeout     time.Duration
	logger      *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many bytes of the body are read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFetchTimeout bounds each fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher that uses client for requests.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultFetchTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves seedURL. Any error it returns wraps ErrSeedFetch.
func (f *Fetcher) Fetch(ctx context.Context, seedURL string) (*Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &StatusError{URL: seedURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	contentType := resp.Header.Get("Content-Type")
	limited := io.LimitReader(resp.Body, f.maxBodySize)
	reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		// Unknown charset declarations fall back to the raw bytes.
		f.logger.Debug("unknown charset, reading raw body",
			"url", seedURL,
			"content_type", contentType,
			"error", err,
		)
		reader = limited
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", ErrSeedFetch, err)
	}

	finalURL := seedURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug("fetched seed page",
		"url", seedURL,
		"final_url", finalURL,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return &Page{
		URL:         seedURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        string(body),
	}, nil
}

package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/netclient"
)

const (
	// DefaultTimeout bounds each HEAD or GET attempt.
	DefaultTimeout = 10 * time.Second

	// maxDrainBytes is how much of a response body is read before closing.
	maxDrainBytes = 64 * 1024
)

// fallbackStatuses are HEAD responses that trigger a GET retry. Many
// servers reject HEAD outright or only route GET.
var fallbackStatuses = map[int]bool{
	http.StatusForbidden:        true,
	http.StatusNotFound:         true,
	http.StatusMethodNotAllowed: true,
}

// Checker checks link reachability. It is safe for concurrent use.
type Checker struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Checker) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New creates a Checker that sends requests through client.
//
// The client's redirect policy is wrapped so the checker can tell whether
// the final response was reached through a redirect.
func New(client *http.Client, opts ...Option) *Checker {
	if client == nil {
		client = http.DefaultClient
	}

	c := &Checker{
		timeout:   DefaultTimeout,
		userAgent: "linkscan/1.0",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	wrapped := *client
	next := client.CheckRedirect
	wrapped.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if next != nil {
			if err := next(req, via); err != nil {
				return err
			}
		} else if len(via) > netclient.MaxRedirects {
			return fmt.Errorf("%w: stopped after %d", netclient.ErrTooManyRedirects, netclient.MaxRedirects)
		}
		if hops, ok := req.Context().Value(hopsKey{}).(*int); ok {
			*hops++
		}
		return nil
	}
	c.client = &wrapped

	return c
}

// errInvalidURL marks URLs that could not be turned into a request.
var errInvalidURL = errors.New("invalid url")

// hopsKey carries the redirect counter of one attempt.
type hopsKey struct{}

// attemptResult is the response metadata of one HEAD or GET.
type attemptResult struct {
	statusCode int
	statusText string
	redirected bool
}

// Check requests rawURL. It never returns an error: failures are reported in
// the result.
func (c *Checker) Check(ctx context.Context, rawURL string) model.LinkResult {
	res, err := c.attempt(ctx, http.MethodHead, rawURL)
	if err == nil && fallbackStatuses[res.statusCode] {
		c.logger.Debug("HEAD rejected, retrying with GET",
			"url", rawURL,
			"status", res.statusCode,
		)
		res, err = c.attempt(ctx, http.MethodGet, rawURL)
	}

	if err != nil {
		return model.LinkResult{
			URL:   rawURL,
			OK:    false,
			Error: c.describeError(ctx, err),
		}
	}

	return model.LinkResult{
		URL:        rawURL,
		OK:         model.IsOKStatus(res.statusCode),
		StatusCode: res.statusCode,
		StatusText: res.statusText,
		Redirected: res.redirected,
	}
}

// attempt sends a single request under its own timeout and drains the body.
func (c *Checker) attempt(ctx context.Context, method, rawURL string) (attemptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hops := 0
	ctx = context.WithValue(ctx, hopsKey{}, &hops)

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return attemptResult{}, fmt.Errorf("%w: %w", errInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.client.Do(req)
	if err != nil {
		return attemptResult{}, err
	}
	defer resp.Body.Close()

	// Reading a bounded prefix lets the transport reuse small responses.
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainBytes)

	return attemptResult{
		statusCode: resp.StatusCode,
		statusText: reasonPhrase(resp),
		redirected: hops > 0,
	}, nil
}

// reasonPhrase extracts "Not Found" from "404 Not Found".
func reasonPhrase(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// describeError turns a transport error into a short diagnostic. ctx is
// the caller's context: when it is done, the scan was stopped rather than
// the attempt timing out.
func (c *Checker) describeError(ctx context.Context, err error) string {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return "scan deadline exceeded"
	case context.Canceled:
		return "canceled"
	}

	if errors.Is(err, errInvalidURL) {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return "invalid url: " + urlErr.Err.Error()
		}
		return err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s", c.timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, netclient.ErrTooManyRedirects) {
		return fmt.Sprintf("too many redirects (limit %d)", netclient.MaxRedirects)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("timeout after %s", c.timeout)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns lookup failed: " + dnsErr.Err
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return "tls: " + certErr.Err.Error()
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return "tls: " + recordErr.Msg
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "connection failed: " + opErr.Err.Error()
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}

	return err.Error()
}

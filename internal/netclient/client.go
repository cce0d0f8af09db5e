package netclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults for the shared client.
const (
	// MaxRedirects is the number of redirect hops followed per request.
	MaxRedirects = 10

	// DefaultMaxConnsPerHost matches the highest allowed scan concurrency.
	DefaultMaxConnsPerHost = 64

	// checkProxyTimeout bounds the SOCKS5 greeting in CheckProxy.
	checkProxyTimeout = 2 * time.Second
)

// AnyHost is the WithSites key matching every host.
const AnyHost = "*"

// Site holds the cookie and headers injected into requests for one host.
type Site struct {
	Cookie  string
	Headers map[string]string
}

// options collects the settings applied by New.
type options struct {
	proxyAddress    string
	sites           map[string]Site
	maxConnsPerHost int
	dialTimeout     time.Duration
}

// Option configures the client built by New.
type Option func(*options)

// WithProxy routes every connection through the SOCKS5 proxy at addr
// ("host:port"). An empty addr disables proxying.
func WithProxy(addr string) Option {
	return func(o *options) {
		o.proxyAddress = addr
	}
}

// WithSites injects per-host cookies and headers. Keys are host names
// without port, matched case-insensitively. The AnyHost entry applies to
// hosts without an entry of their own.
func WithSites(sites map[string]Site) Option {
	return func(o *options) {
		o.sites = make(map[string]Site, len(sites))
		for host, site := range sites {
			o.sites[strings.ToLower(host)] = site
		}
	}
}

// WithMaxConnsPerHost sets the idle pool size per host.
func WithMaxConnsPerHost(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConnsPerHost = n
		}
	}
}

// New creates an HTTP client for fetching seeds and checking links.
//
// The client has no overall Timeout. Callers bound each request with a
// context deadline so that HEAD and the GET fallback get separate budgets.
func New(opts ...Option) (*http.Client, error) {
	o := &options{
		maxConnsPerHost: DefaultMaxConnsPerHost,
		dialTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	netDial := &net.Dialer{
		Timeout:   o.dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           netDial.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   o.maxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if o.proxyAddress != "" {
		if !isValidProxyAddress(o.proxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, netDial)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	var rt http.RoundTripper = transport
	if len(o.sites) > 0 {
		rt = &headerInjectingTransport{base: transport, sites: o.sites}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport:     rt,
		Jar:           jar,
		CheckRedirect: limitRedirects,
	}, nil
}

// limitRedirects stops after MaxRedirects hops.
func limitRedirects(_ *http.Request, via []*http.Request) error {
	if len(via) > MaxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, MaxRedirects)
	}
	return nil
}

// isValidProxyAddress checks that address is "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 greeting constants.
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// CheckProxy verifies that addr accepts a SOCKS5 greeting without
// authentication. It does not open any connection through the proxy.
func CheckProxy(ctx context.Context, addr string) ProxyStatus {
	if !isValidProxyAddress(addr) {
		return ProxyStatusCannotConnect
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, one method, no auth
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

// headerInjectingTransport adds the configured cookie and headers for the
// request's host.
type headerInjectingTransport struct {
	base  http.RoundTripper
	sites map[string]Site
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	site, ok := t.sites[strings.ToLower(req.URL.Hostname())]
	if !ok {
		site, ok = t.sites[AnyHost]
	}
	if !ok {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())

	if site.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+site.Cookie)
		} else {
			clone.Header.Set("Cookie", site.Cookie)
		}
	}
	for key, value := range site.Headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

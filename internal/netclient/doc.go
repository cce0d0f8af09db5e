// Package netclient builds the HTTP client shared by the seed fetcher and
// the link checker.
//
// The client carries the pieces every outbound request needs:
//
//   - a tuned connection pool sized for many concurrent checks
//   - an optional SOCKS5 proxy (golang.org/x/net/proxy)
//   - a redirect limit of 10 hops, reported as ErrTooManyRedirects
//   - per-host cookies and headers from the config file's sites section
//
// Per-request timeouts are left to callers, which bound each request with a
// context deadline.
package netclient

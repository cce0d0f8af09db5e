// Package crawler fetches a seed page and extracts the links on it.
//
// The package has two halves:
//
//   - Extract: a pure function that turns an HTML document into a
//     deduplicated, capped list of absolute http(s) URLs.
//   - Fetcher: downloads the seed page, following redirects, decoding the
//     body to UTF-8 and treating any non-2xx response as a failure.
//
// Crawling stops at depth 1. The links found on the seed page are handed to
// the checker, they are never fetched for further links.
//
// # Usage
//
//	f := crawler.NewFetcher(httpClient, crawler.WithUserAgent("linkscan/1.0"))
//	page, err := f.Fetch(ctx, "https://example.com")
//	if err != nil {
//		// errors.Is(err, crawler.ErrSeedFetch)
//	}
//	links := crawler.Extract(page.Body, page.FinalURL, 800)
package crawler

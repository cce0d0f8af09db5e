package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedSchemes are href prefixes that never point to a checkable resource.
var skippedSchemes = []string{"mailto:", "tel:", "javascript:"}

// Extract returns the distinct absolute http(s) links of the <a> and <area>
// elements in htmlDoc, in first-seen order and truncated to limit.
//
// Relative references are resolved against baseURL. Malformed references
// are dropped silently. A limit <= 0 or an unparsable baseURL yields an
// empty result. Extract performs no I/O.
func Extract(htmlDoc, baseURL string, limit int) []string {
	links := make([]string, 0)
	if limit <= 0 {
		return links
	}

	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return links
	}

	doc, err := html.Parse(strings.NewReader(htmlDoc))
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})

	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "area") {
			if link := resolveLink(base, getAttr(n, "href")); link != "" {
				if _, dup := seen[link]; !dup {
					seen[link] = struct{}{}
					links = append(links, link)
					if len(links) >= limit {
						return false
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)

	return links
}

// resolveLink turns an href value into an absolute http(s) URL, or returns
// the empty string when the value should be skipped.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(ref)
	// url.Parse lowercases the scheme.
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	normalize(resolved)
	return resolved.String()
}

// defaultPorts are dropped from link hosts.
var defaultPorts = map[string]string{"http": "80", "https": "443"}

// normalize rewrites u in place so that spellings of the same resource
// compare equal: the host is lowercased, a default or empty port is
// dropped and an empty path becomes "/".
func normalize(u *url.URL) {
	host := strings.ToLower(u.Host)
	if port := u.Port(); port == "" || port == defaultPorts[u.Scheme] {
		host = strings.TrimSuffix(host, ":"+port)
	}
	u.Host = host
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

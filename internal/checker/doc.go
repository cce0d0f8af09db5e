// Package checker checks a single URL and classifies it as reachable or
// broken.
//
// A check sends HEAD first and follows redirects. Servers that reject HEAD
// with 403, 404 or 405 get one more chance with GET. A final status below 400
// counts as reachable. Transport failures never surface as Go errors: they
// become a broken result carrying a short diagnostic.
package checker

// Package main provides the entry point for the linkscan CLI.
//
// linkscan fetches a page, checks every link on it and records which ones
// are broken. Scans run locally or through a Redis-backed worker.
//
// Usage:
//
//	linkscan scan https://example.com
//	linkscan submit https://example.com
//	linkscan worker
//
// See --help for all available options.
package main

// main is the entry point for linkscan.
func main() {
	Execute()
}

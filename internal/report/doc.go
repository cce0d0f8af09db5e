// Package report renders scans, scan listings and scan comparisons.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with tables, alerts and a mermaid chart
//
// Design decision: We separate report writing from the scan data
// structures (which are in the model package) so that new output formats
// do not touch persistence or the pipeline.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
//
// CompareItems builds a Diff between two scans of the same seed, which is
// how link rot is tracked over time.
package report

// Package pipeline executes link scans.
//
// A scan runs as a Pipeline of Steps over a shared *Run:
//
//	fetch_seed -> extract_links -> check_links -> persist_items
//
// The Orchestrator wraps that pipeline with the scan lifecycle. It marks the
// scan RUNNING before any check, routes seed failures to a FAILED terminal
// state with a single sentinel item, and writes the aggregates when every
// item is stored.
//
// Design decision: the lifecycle lives in the Orchestrator rather than in
// steps. Steps only move data, so each one can be tested with a bare Run and
// the pipeline can stop on the first error without leaving partial state
// transitions behind.
//
// Link checks fan out through the Fanout, which bounds the number of checks
// in flight with errgroup.SetLimit. Several scans can run side by side
// through the BatchRunner.
package pipeline

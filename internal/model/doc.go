// Package model defines the core data structures used throughout linkscan.
//
// This package contains the following main types:
//   - Scan: One scan request and its lifecycle state
//   - ScanItem: The persisted outcome of one checked link
//   - LinkResult: The in-memory outcome produced by the link checker
//   - Job: The descriptor delivered to a worker to execute a scan
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, database, queue and report packages all use
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// queue messages.
package model

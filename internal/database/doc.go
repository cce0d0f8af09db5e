// Package database provides SQLite-based storage for linkscan.
//
// The Store keeps two tables:
//   - scans: one row per scan with its lifecycle state and aggregates
//   - scan_items: one row per checked link, owned by a scan
//
// Both tables carry an autoincrement seq column. It gives a stable order for
// listings and backs the opaque pagination cursors.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external service is needed; the database is a single file
// 2. The CGO-free driver allows easy cross-compilation
// 3. WAL mode lets readers (list, show) run while a worker writes
//
// Lifecycle updates are guarded in SQL with WHERE status IN (...), so two
// workers racing on one scan cannot move it backwards.
package database

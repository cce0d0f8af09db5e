package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// Page sizes for scan listings.
const (
	DefaultScanLimit = 25
	MaxScanLimit     = 100
)

// ScanPage is one page of scans, newest first.
type ScanPage struct {
	Scans []*model.Scan

	// NextCursor continues the listing. Empty means there are no more scans.
	NextCursor string
}

// ListScansOptions filters and paginates ListScans.
type ListScansOptions struct {
	// URL restricts the listing to scans of one seed URL.
	URL string

	// Cursor is a NextCursor from a previous page.
	Cursor string

	// Limit defaults to 25 and is capped at 100.
	Limit int
}

const scanColumns = `seq, id, url, status, created_at, started_at, finished_at,
	duration_ms, total_links, ok_count, broken_count`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanScanRow reads one scans row.
func scanScanRow(row rowScanner) (*model.Scan, int64, error) {
	var (
		scan       model.Scan
		seq        int64
		status     string
		createdAt  string
		startedAt  sql.NullString
		finishedAt sql.NullString
		durationMs sql.NullInt64
	)
	err := row.Scan(
		&seq,
		&scan.ID,
		&scan.URL,
		&status,
		&createdAt,
		&startedAt,
		&finishedAt,
		&durationMs,
		&scan.TotalLinks,
		&scan.OKCount,
		&scan.BrokenCount,
	)
	if err != nil {
		return nil, 0, err
	}

	scan.Status = model.ScanStatus(status)
	scan.CreatedAt = parseTimestamp(createdAt)
	scan.StartedAt = nullTimestamp(startedAt)
	scan.FinishedAt = nullTimestamp(finishedAt)
	if durationMs.Valid {
		d := durationMs.Int64
		scan.DurationMs = &d
	}
	return &scan, seq, nil
}

// CreateScan inserts a new scan.
func (s *Store) CreateScan(ctx context.Context, scan *model.Scan) error {
	if !scan.Status.IsValid() {
		return fmt.Errorf("failed to insert scan: unknown status %q", scan.Status)
	}

	var durationMs sql.NullInt64
	if scan.DurationMs != nil {
		durationMs = sql.NullInt64{Int64: *scan.DurationMs, Valid: true}
	}

	query := `
	INSERT INTO scans (id, url, status, created_at, started_at, finished_at,
		duration_ms, total_links, ok_count, broken_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		scan.ID,
		scan.URL,
		string(scan.Status),
		formatTimestamp(scan.CreatedAt),
		optionalTimestamp(scan.StartedAt),
		optionalTimestamp(scan.FinishedAt),
		durationMs,
		scan.TotalLinks,
		scan.OKCount,
		scan.BrokenCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// optionalTimestamp is the storage form of a nullable timestamp.
func optionalTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

// GetScan retrieves a scan by ID. It returns ErrNotFound if none exists.
func (s *Store) GetScan(ctx context.Context, id string) (*model.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = ?`

	scan, _, err := scanScanRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return scan, nil
}

// StartScan marks a QUEUED or RUNNING scan as RUNNING and deletes items
// left by earlier attempts, in one transaction.
func (s *Store) StartScan(ctx context.Context, id string, startedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := transition(ctx, tx, id, model.StatusRunning, `
		started_at = ?,
		finished_at = NULL,
		duration_ms = NULL,
		total_links = 0,
		ok_count = 0,
		broken_count = 0`,
		formatTimestamp(startedAt),
	); err != nil {
		return err
	}

	if _, err := deleteItems(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CompleteScan marks a RUNNING scan as COMPLETED with its aggregates.
func (s *Store) CompleteScan(ctx context.Context, id string, summary model.Summary, finishedAt time.Time) error {
	return transition(ctx, s.db, id, model.StatusCompleted, `
		finished_at = ?,
		duration_ms = ?,
		total_links = ?,
		ok_count = ?,
		broken_count = ?`,
		formatTimestamp(finishedAt),
		summary.DurationMs,
		summary.TotalLinks,
		summary.OKCount,
		summary.BrokenCount,
	)
}

// FailScan marks a RUNNING scan as FAILED. Aggregates are left untouched.
func (s *Store) FailScan(ctx context.Context, id string, finishedAt time.Time) error {
	return transition(ctx, s.db, id, model.StatusFailed, `finished_at = ?`,
		formatTimestamp(finishedAt),
	)
}

// ResetScan moves a COMPLETED or FAILED scan back to QUEUED and clears its
// timestamps and duration.
func (s *Store) ResetScan(ctx context.Context, id string) error {
	return transition(ctx, s.db, id, model.StatusQueued, `
		started_at = NULL,
		finished_at = NULL,
		duration_ms = NULL`,
	)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// transition moves scan id to next, applying the extra assignments in set.
// The update only matches rows whose current status may move to next
// according to model.ScanStatus.CanTransitionTo. When no row changes it
// reports ErrNotFound or ErrInvalidTransition depending on whether the
// scan exists.
func transition(ctx context.Context, ex execer, id string, next model.ScanStatus, set string, setArgs ...any) error {
	from := sourceStatuses(next)
	if len(from) == 0 {
		return fmt.Errorf("scan %s to %s: %w", id, next, ErrInvalidTransition)
	}

	query := `UPDATE scans SET status = ?, ` + set +
		` WHERE id = ? AND status IN (?` + strings.Repeat(`, ?`, len(from)-1) + `)`
	args := make([]any, 0, len(setArgs)+len(from)+2)
	args = append(args, string(next))
	args = append(args, setArgs...)
	args = append(args, id)
	args = append(args, from...)

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = ex.QueryRowContext(ctx, `SELECT status FROM scans WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("scan %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read scan status: %w", err)
	}
	return fmt.Errorf("scan %s is %s: %w", id, status, ErrInvalidTransition)
}

// sourceStatuses lists, as query arguments, the statuses allowed to move to next.
func sourceStatuses(next model.ScanStatus) []any {
	var from []any
	for _, status := range model.AllStatuses() {
		if status.CanTransitionTo(next) {
			from = append(from, string(status))
		}
	}
	return from
}

// ListScans returns one page of scans, newest first.
func (s *Store) ListScans(ctx context.Context, opts ListScansOptions) (*ScanPage, error) {
	limit := clampLimit(opts.Limit, DefaultScanLimit, MaxScanLimit)
	after, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if opts.URL != "" {
		where = append(where, "url = ?")
		args = append(args, opts.URL)
	}
	if after > 0 {
		where = append(where, "seq < ?")
		args = append(args, after)
	}

	query := `SELECT ` + scanColumns + ` FROM scans`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	page := &ScanPage{Scans: make([]*model.Scan, 0, limit)}
	var lastSeq int64
	for rows.Next() {
		scan, seq, err := scanScanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(page.Scans) == limit {
			page.NextCursor = encodeCursor(lastSeq)
			break
		}
		page.Scans = append(page.Scans, scan)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return page, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nao1215/linkscan/internal/model"
)

// Page sizes for item listings.
const (
	DefaultItemLimit = 50
	MaxItemLimit     = 200
)

// ItemFilter selects items by outcome.
type ItemFilter string

const (
	FilterAll    ItemFilter = "all"
	FilterOK     ItemFilter = "ok"
	FilterBroken ItemFilter = "broken"
)

// ParseItemFilter parses "ok", "broken" or "all". Empty means all.
func ParseItemFilter(s string) (ItemFilter, error) {
	switch ItemFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterOK:
		return FilterOK, nil
	case FilterBroken:
		return FilterBroken, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// clause returns the SQL condition for the filter, or "" for all.
func (f ItemFilter) clause() string {
	switch f {
	case FilterOK:
		return "ok = 1"
	case FilterBroken:
		return "ok = 0"
	default:
		return ""
	}
}

// ItemPage is one page of items in insertion order.
type ItemPage struct {
	Items []*model.ScanItem

	// NextCursor continues the listing. Empty means there are no more items.
	NextCursor string
}

// ListItemsOptions filters and paginates ListItems.
type ListItemsOptions struct {
	// Status selects ok, broken or all items. Empty means all.
	Status ItemFilter

	// Cursor is a NextCursor from a previous page.
	Cursor string

	// Limit defaults to 50 and is capped at 200.
	Limit int
}

const itemColumns = `seq, id, scan_id, url, ok, status_code, status_text,
	redirected, error, created_at`

// scanItemRow reads one scan_items row.
func scanItemRow(row rowScanner) (*model.ScanItem, int64, error) {
	var (
		item       model.ScanItem
		seq        int64
		statusCode sql.NullInt64
		statusText sql.NullString
		redirected sql.NullBool
		errText    sql.NullString
		createdAt  string
	)
	err := row.Scan(
		&seq,
		&item.ID,
		&item.ScanID,
		&item.URL,
		&item.OK,
		&statusCode,
		&statusText,
		&redirected,
		&errText,
		&createdAt,
	)
	if err != nil {
		return nil, 0, err
	}

	if statusCode.Valid {
		code := int(statusCode.Int64)
		item.StatusCode = &code
	}
	if statusText.Valid {
		text := statusText.String
		item.StatusText = &text
	}
	if redirected.Valid {
		r := redirected.Bool
		item.Redirected = &r
	}
	if errText.Valid {
		msg := errText.String
		item.Error = &msg
	}
	item.CreatedAt = parseTimestamp(createdAt)
	return &item, seq, nil
}

// InsertItems stores items in one transaction. Every item is validated
// first; an invalid item rejects the whole batch.
func (s *Store) InsertItems(ctx context.Context, items []*model.ScanItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("refusing invalid item: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO scan_items (id, scan_id, url, ok, status_code, status_text, redirected, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
			item.ID,
			item.ScanID,
			item.URL,
			item.OK,
			nullInt(item.StatusCode),
			nullString(item.StatusText),
			nullBool(item.Redirected),
			nullString(item.Error),
			formatTimestamp(item.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InsertItem stores a single item.
func (s *Store) InsertItem(ctx context.Context, item *model.ScanItem) error {
	return s.InsertItems(ctx, []*model.ScanItem{item})
}

// deleteItems removes every item of a scan and returns how many were removed.
func deleteItems(ctx context.Context, ex execer, scanID string) (int64, error) {
	result, err := ex.ExecContext(ctx, `DELETE FROM scan_items WHERE scan_id = ?`, scanID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear items: %w", err)
	}
	return result.RowsAffected()
}

// CountItems counts the items of a scan matching filter.
func (s *Store) CountItems(ctx context.Context, scanID string, filter ItemFilter) (int, error) {
	query := `SELECT COUNT(*) FROM scan_items WHERE scan_id = ?`
	if c := filter.clause(); c != "" {
		query += " AND " + c
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, scanID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// ListItems returns one page of a scan's items in insertion order.
func (s *Store) ListItems(ctx context.Context, scanID string, opts ListItemsOptions) (*ItemPage, error) {
	limit := clampLimit(opts.Limit, DefaultItemLimit, MaxItemLimit)
	after, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, err
	}

	items, next, err := s.queryItems(ctx, scanID, opts.Status, after, limit)
	if err != nil {
		return nil, err
	}
	return &ItemPage{Items: items, NextCursor: next}, nil
}

// AllItems returns every item of a scan matching filter, in insertion order.
func (s *Store) AllItems(ctx context.Context, scanID string, filter ItemFilter) ([]*model.ScanItem, error) {
	items, _, err := s.queryItems(ctx, scanID, filter, 0, -1)
	return items, err
}

// queryItems reads items after the given seq. A negative limit reads all.
func (s *Store) queryItems(ctx context.Context, scanID string, filter ItemFilter, after int64, limit int) ([]*model.ScanItem, string, error) {
	query := `SELECT ` + itemColumns + ` FROM scan_items WHERE scan_id = ? AND seq > ?`
	if c := filter.clause(); c != "" {
		query += " AND " + c
	}
	query += ` ORDER BY seq ASC`
	args := []any{scanID, after}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*model.ScanItem, 0)
	var (
		lastSeq int64
		next    string
	)
	for rows.Next() {
		item, seq, err := scanItemRow(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan row: %w", err)
		}
		if limit > 0 && len(items) == limit {
			next = encodeCursor(lastSeq)
			break
		}
		items = append(items, item)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating rows: %w", err)
	}

	return items, next, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

package database

import "errors"

var (
	// ErrNotFound is returned when a scan does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a lifecycle update does not apply
	// to the scan's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidCursor is returned for a malformed pagination cursor.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidFilter is returned for an unknown item status filter.
	ErrInvalidFilter = errors.New("invalid item filter: expected ok, broken or all")
)

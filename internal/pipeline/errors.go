package pipeline

import "errors"

var (
	// ErrScanNotFound is returned when a job refers to a scan that does not exist.
	ErrScanNotFound = errors.New("scan not found")

	// ErrNoSeedPage is returned when a step needs the seed page but none was fetched.
	ErrNoSeedPage = errors.New("seed page not fetched")
)

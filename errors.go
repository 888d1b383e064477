package gribidx

import "github.com/hupe1980/gribidx/collection"

var (
	// ErrNotFound is matched by errors for absent indexes and coordinates no
	// partition covers.
	ErrNotFound = collection.ErrNotFound
	// ErrFormat is matched by errors for corrupt or inconsistent indexes.
	ErrFormat = collection.ErrFormat
	// ErrIO is matched by errors from the underlying store.
	ErrIO = collection.ErrIO
	// ErrMissing is returned when a record is known to be missing.
	ErrMissing = collection.ErrMissing
	// ErrClosed is returned by operations on a closed index or cache.
	ErrClosed = collection.ErrClosed
)

// Error is the typed error returned by index operations.
type Error = collection.Error

package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a record set or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when the backing store is locked by another writer
	// and the caller's context expired while waiting.
	ErrBusy = errors.New("store busy")
)

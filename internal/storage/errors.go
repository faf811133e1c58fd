package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record with a
	// key that already exists. Trade ledgers are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned by a compare-and-swap save when another
	// writer updated the record since it was loaded.
	ErrVersionConflict = errors.New("version conflict: state changed since load")

	// ErrLockBusy is returned when the risk-state advisory lock is held by a
	// live holder.
	ErrLockBusy = errors.New("state lock busy")
)

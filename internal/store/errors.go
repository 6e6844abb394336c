package store

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")
)

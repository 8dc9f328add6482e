package store

import "errors"

var (
	// ErrNotFound means a referenced id did not resolve to a row.
	ErrNotFound = errors.New("record not found")

	// ErrConstraintViolation means a foreign-key or uniqueness invariant
	// would be broken. Surfacing this to a caller that validated its inputs
	// indicates a bug.
	ErrConstraintViolation = errors.New("constraint violation")
)

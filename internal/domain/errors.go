package domain

import "errors"

var (
	// ErrInvalidInput marks a caller supplied argument that is out of range.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a lookup that matched no record.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict marks an optimistic update that lost a race.
	ErrVersionConflict = errors.New("version conflict")
)

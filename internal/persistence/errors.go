package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrInvalidInput is returned when a required key is empty.
	ErrInvalidInput = errors.New("persistence: invalid input")
	// ErrLocked is returned when the database stays busy beyond its timeout.
	ErrLocked = errors.New("persistence: database locked")
)

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a URL fails validation
	ErrInvalidURL = errors.New("invalid URL")

	// ErrNotFound is returned when no active link matches. A wrong remove
	// token yields the same error as an unknown hash.
	ErrNotFound = errors.New("link not found")

	// ErrHashConflict is returned when an active link already uses the hash
	ErrHashConflict = errors.New("hash already in use")
)

// PersistenceError wraps a failure of the link store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a store failure
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

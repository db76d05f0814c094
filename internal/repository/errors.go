package repository

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a database failure. Batch writes that return it
// have been rolled back entirely.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

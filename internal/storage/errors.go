package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyText is returned when an event without text is recorded.
var ErrEmptyText = errors.New("event text is empty")

// PersistenceError wraps any failure of a store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Fail wraps err into a PersistenceError for op. It returns nil for a nil err.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

package alerts

import (
	"errors"
	"fmt"
)

// ErrInvalidThreshold marks thresholds that are not finite positive numbers.
var ErrInvalidThreshold = errors.New("threshold must be a finite positive number")

// ValidationError reports bad user input. No state is mutated when it is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure. The in-memory collection remains authoritative.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist alerts (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

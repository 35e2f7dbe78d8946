package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCountUnderflow is returned when a count adjustment would go below zero
	ErrCountUnderflow = errors.New("record count underflow")
	// ErrUnrepairable is returned by Repair for issues it has no fix for
	ErrUnrepairable = errors.New("database issue cannot be repaired")
)

// IOError is the single error kind returned by PhysicalDB file operations
type IOError struct {
	Op   string // Operation that failed, e.g. "read header"
	Path string // Backing file
	Err  error  // Underlying cause
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError reports whether err is, or wraps, an *IOError
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

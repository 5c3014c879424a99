package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown student/material/section/course references.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent write raced the unique (student, material)
	// key. The service retries internally; callers only see it when retries
	// exhaust.
	ErrConflict = errors.New("write conflict")
)

// ValidationError rejects malformed input before any write happens.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

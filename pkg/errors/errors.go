// Package errors defines the error kinds shared by every layer.
//
// Module errors wrap exactly one kind so the HTTP layer can pick a status
// with errors.Is without knowing every module sentinel.
package errors

import (
	"errors"
	"fmt"
)

// ── Error kinds ──

var (
	// ErrValidation input violates a data-model rule; nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrConflict current database state forbids the change.
	ErrConflict = errors.New("conflict")
	// ErrForbidden caller lacks the role or relationship required.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrOptimisticLock record was modified by another operation since it was read.
var ErrOptimisticLock = fmt.Errorf("%w: record was modified by another operation, reload and retry", ErrConflict)

// kindError carries a message and the kind it belongs to.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Validation builds a validation error.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a conflict error.
func Conflict(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Forbidden builds an authorization error.
func Forbidden(format string, args ...any) error {
	return &kindError{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error.
func NotFound(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Kind returns the kind sentinel err belongs to, or nil for internal errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrForbidden, ErrNotFound} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

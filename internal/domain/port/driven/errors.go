// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by store implementations and services.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write would violate a uniqueness rule.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates caller input was rejected before any write.
	ErrValidation = errors.New("validation failed")
)

// FieldError describes one rejected input field. It never carries the
// rejected value.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every rejected field of one input. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

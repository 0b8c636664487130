package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSource is the kind behind every ValidationError.
var ErrInvalidSource = errors.New("invalid source")

// ValidationError reports a structurally broken source: a required table or
// column is absent. It lists every problem found for the entity.
type ValidationError struct {
	// Entity is the table (or dataset) that failed validation.
	Entity string

	// Errors holds one message per missing table or column.
	Errors []string
}

// NewValidationError creates an empty ValidationError for entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %s", e.Entity, strings.Join(e.Errors, "; "))
}

// Unwrap lets errors.Is match ErrInvalidSource.
func (e *ValidationError) Unwrap() error { return ErrInvalidSource }

// AddError appends a message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf appends a formatted message.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.AddError(fmt.Sprintf(format, args...))
}

// HasErrors reports whether any message was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error taxonomy shared by the ledger, analytics and report services.
// Callers match with errors.Is; services wrap these with context.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// NotFoundError reports an entity id that could not be resolved.
func NotFoundError(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// UnauthorizedError reports an entity that does not belong to the caller.
func UnauthorizedError(entity, id string) error {
	return fmt.Errorf("%s %q does not belong to the requesting user: %w", entity, id, ErrUnauthorized)
}

// InvalidStateError reports stored state that cannot be used as-is.
func InvalidStateError(entity, id, reason string) error {
	return fmt.Errorf("%s %q: %s: %w", entity, id, reason, ErrInvalidState)
}

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty validation error to collect field problems into.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a problem for a field. The first problem per field wins.
func (e *ValidationError) Add(field, problem string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = problem
	}
}

// HasErrors reports whether any field problem was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns the error when it holds field problems, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

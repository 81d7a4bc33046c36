package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Typed errors below wrap exactly one of these so callers can
// branch with errors.Is without knowing the concrete type.
var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrRateLookup        = errors.New("exchange rate lookup failed")
	ErrNotFound          = errors.New("not found")
)

// InvalidTransitionError reports a status change that is not defined from the current state.
type InvalidTransitionError struct {
	Machine string // "policy" or "slip"
	From    string
	Action  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", e.Machine, e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports input that was rejected before any state changed.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PersistenceError wraps a failed repository call. It is retryable from the caller's view.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// RateLookupError reports an unavailable exchange-rate provider. Never fatal.
type RateLookupError struct {
	Currency string
	Err      error
}

func (e *RateLookupError) Error() string {
	return fmt.Sprintf("rate lookup for %s: %v", e.Currency, e.Err)
}

func (e *RateLookupError) Unwrap() []error { return []error{ErrRateLookup, e.Err} }

// NotFoundError reports a missing record or collection entry.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Kind returns a short machine-readable name for the error kind, or "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrRateLookup):
		return "rate_lookup"
	default:
		return "internal"
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     string
	}{
		{"transition", &InvalidTransitionError{Machine: "slip", From: "CLOSED", Action: "reopen"}, ErrInvalidTransition, "invalid_transition"},
		{"validation", NewValidationError("reason", "required"), ErrValidation, "validation"},
		{"persistence", &PersistenceError{Op: "save policy", ID: "p1", Err: cause}, ErrPersistence, "persistence"},
		{"rate lookup", &RateLookupError{Currency: "EUR", Err: cause}, ErrRateLookup, "rate_lookup"},
		{"not found", &NotFoundError{Kind: "policy", ID: "p1"}, ErrNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, Kind(wrapped))
		})
	}
}

func TestPersistenceErrorKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := &PersistenceError{Op: "save slip", ID: "s1", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save slip s1: database is locked", err.Error())
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := &InvalidTransitionError{Machine: "policy", From: "PENDING", Action: "terminate early"}
	assert.Equal(t, "policy: cannot terminate early from PENDING", err.Error())
}

func TestKind_Unknown(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "internal", Kind(errors.New("x")))
}

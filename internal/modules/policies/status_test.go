package policies

import (
	"errors"
	"testing"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newMachine() *StatusMachine {
	return NewStatusMachineWithClock(func() time.Time { return fixedNow })
}

func TestActivate_FromPending(t *testing.T) {
	p := Policy{ID: "p1", Status: StatusPending}

	got, warnings, err := newMachine().Activate(p, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, got.Status)
	require.NotNil(t, got.ActivationDate)
	assert.Equal(t, fixedNow, *got.ActivationDate)
	assert.Equal(t, []string{WarningNoSignedDocument}, warnings)
	assert.Equal(t, StatusPending, p.Status, "input must stay untouched")
	assert.Nil(t, p.ActivationDate)
}

func TestActivate_WithDocumentHasNoWarning(t *testing.T) {
	doc := &SignedDocument{Name: "slip.pdf", StorageRef: "docs/p1/slip.pdf"}

	got, warnings, err := newMachine().Activate(Policy{Status: StatusPending}, doc)
	require.NoError(t, err)

	assert.Empty(t, warnings)
	require.NotNil(t, got.SignedDocument)
	assert.Equal(t, "slip.pdf", got.SignedDocument.Name)
	assert.Equal(t, fixedNow, got.SignedDocument.UploadedAt)
}

func TestActivate_RejectedOutsidePending(t *testing.T) {
	for _, from := range []Status{StatusActive, StatusNTU, StatusCancelled, StatusEarlyTermination} {
		t.Run(string(from), func(t *testing.T) {
			p := Policy{Status: from}
			got, _, err := newMachine().Activate(p, nil)

			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
			assert.Equal(t, p, got)
		})
	}
}

func TestTerminateEarly(t *testing.T) {
	details := TerminationDetail{Date: fixedNow, Initiator: "cedant", Reason: "Portfolio sold"}

	t.Run("from pending fails", func(t *testing.T) {
		p := Policy{Status: StatusPending}
		got, err := newMachine().TerminateEarly(p, details)

		var te *domain.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "policy", te.Machine)
		assert.Equal(t, "PENDING", te.From)
		assert.Equal(t, StatusPending, got.Status)
		assert.Nil(t, got.Termination)
	})

	t.Run("from active stores details", func(t *testing.T) {
		got, err := newMachine().TerminateEarly(Policy{Status: StatusActive}, details)
		require.NoError(t, err)

		assert.Equal(t, StatusEarlyTermination, got.Status)
		require.NotNil(t, got.Termination)
		assert.Equal(t, InitiatorCedant, got.Termination.Initiator)
		assert.Equal(t, "Portfolio sold", got.Termination.Reason)
	})

	t.Run("invalid details", func(t *testing.T) {
		cases := map[string]TerminationDetail{
			"missing date":      {Initiator: InitiatorUs, Reason: "x"},
			"unknown initiator": {Date: fixedNow, Initiator: "Regulator", Reason: "x"},
			"blank reason":      {Date: fixedNow, Initiator: InitiatorUs, Reason: "   "},
		}
		for name, d := range cases {
			t.Run(name, func(t *testing.T) {
				p := Policy{Status: StatusActive}
				got, err := newMachine().TerminateEarly(p, d)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Equal(t, StatusActive, got.Status)
			})
		}
	})
}

func TestSimpleTransitions(t *testing.T) {
	m := newMachine()
	tests := []struct {
		name    string
		from    Status
		apply   func(Policy) (Policy, error)
		want    Status
		wantErr bool
	}{
		{"ntu from pending", StatusPending, m.MarkNotTakenUp, StatusNTU, false},
		{"ntu from active", StatusActive, m.MarkNotTakenUp, "", true},
		{"cancel from pending", StatusPending, m.Cancel, StatusCancelled, false},
		{"cancel from active", StatusActive, m.Cancel, StatusCancelled, false},
		{"cancel from ntu", StatusNTU, m.Cancel, "", true},
		{"cancel twice", StatusCancelled, m.Cancel, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.apply(Policy{Status: tt.from})
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, tt.from, got.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestTerminalStates(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusNTU.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusEarlyTermination.IsTerminal())

	assert.Equal(t, []Action{ActionActivate, ActionMarkNTU, ActionCancel}, AvailableActions(StatusPending))
	assert.Equal(t, []Action{ActionCancel, ActionTerminateEarly}, AvailableActions(StatusActive))
	assert.Empty(t, AvailableActions(StatusNTU))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"active", StatusActive},
		{" Pending ", StatusPending},
		{"ntu", StatusNTU},
		{"Not Taken Up", StatusNTU},
		{"canceled", StatusCancelled},
		{"early-termination", StatusEarlyTermination},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStatus("bound")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

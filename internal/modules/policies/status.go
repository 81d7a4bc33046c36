package policies

import (
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// Status is the closed set of policy states
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusActive           Status = "ACTIVE"
	StatusNTU              Status = "NTU"
	StatusCancelled        Status = "CANCELLED"
	StatusEarlyTermination Status = "EARLY_TERMINATION"
)

// ParseStatus normalizes stored or user-supplied status text. It is the only place
// free-form status strings enter the model.
func ParseStatus(s string) (Status, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch v {
	case "", "PENDING":
		return StatusPending, nil
	case "ACTIVE":
		return StatusActive, nil
	case "NTU", "NOT_TAKEN_UP":
		return StatusNTU, nil
	case "CANCELLED", "CANCELED":
		return StatusCancelled, nil
	case "EARLY_TERMINATION", "TERMINATED":
		return StatusEarlyTermination, nil
	}
	return "", domain.NewValidationError("status", "unknown policy status %q", s)
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Action is a requested policy transition
type Action string

const (
	ActionActivate       Action = "activate"
	ActionMarkNTU        Action = "mark_not_taken_up"
	ActionCancel         Action = "cancel"
	ActionTerminateEarly Action = "terminate_early"
)

var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionActivate: StatusActive,
		ActionMarkNTU:  StatusNTU,
		ActionCancel:   StatusCancelled,
	},
	StatusActive: {
		ActionCancel:         StatusCancelled,
		ActionTerminateEarly: StatusEarlyTermination,
	},
}

// Next returns the target of action from `from`, or an InvalidTransitionError.
func Next(from Status, action Action) (Status, error) {
	if to, ok := transitions[from][action]; ok {
		return to, nil
	}
	return "", &domain.InvalidTransitionError{Machine: "policy", From: string(from), Action: string(action)}
}

// AvailableActions lists the actions permitted from s in a stable order.
func AvailableActions(s Status) []Action {
	var out []Action
	for _, a := range []Action{ActionActivate, ActionMarkNTU, ActionCancel, ActionTerminateEarly} {
		if _, ok := transitions[s][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// WarningNoSignedDocument is returned by Activate when no document is attached.
const WarningNoSignedDocument = "no signed document attached"

// StatusMachine applies policy transitions. Every method takes a Policy value and
// returns an updated copy; on error the input is returned unchanged.
type StatusMachine struct {
	now func() time.Time
}

// NewStatusMachine creates a machine that stamps dates with the wall clock.
func NewStatusMachine() *StatusMachine {
	return &StatusMachine{now: time.Now}
}

// NewStatusMachineWithClock creates a machine with a fixed clock, for tests and replays.
func NewStatusMachineWithClock(now func() time.Time) *StatusMachine {
	return &StatusMachine{now: now}
}

// Activate moves PENDING to ACTIVE and stamps ActivationDate. A missing signed
// document is not an error but produces a warning for the caller to surface.
func (m *StatusMachine) Activate(p Policy, doc *SignedDocument) (Policy, []string, error) {
	to, err := Next(p.Status, ActionActivate)
	if err != nil {
		return p, nil, err
	}

	out := p.Clone()
	now := m.now().UTC()
	out.Status = to
	out.ActivationDate = &now
	if doc != nil {
		d := *doc
		if d.UploadedAt.IsZero() {
			d.UploadedAt = now
		}
		out.SignedDocument = &d
	}

	var warnings []string
	if out.SignedDocument == nil {
		warnings = append(warnings, WarningNoSignedDocument)
	}
	return out, warnings, nil
}

// MarkNotTakenUp moves PENDING to NTU.
func (m *StatusMachine) MarkNotTakenUp(p Policy) (Policy, error) {
	return m.simple(p, ActionMarkNTU)
}

// Cancel moves PENDING or ACTIVE to CANCELLED.
func (m *StatusMachine) Cancel(p Policy) (Policy, error) {
	return m.simple(p, ActionCancel)
}

// TerminateEarly moves ACTIVE to EARLY_TERMINATION and records details.
func (m *StatusMachine) TerminateEarly(p Policy, details TerminationDetail) (Policy, error) {
	to, err := Next(p.Status, ActionTerminateEarly)
	if err != nil {
		return p, err
	}
	initiator, err := ParseInitiator(string(details.Initiator))
	if err != nil {
		return p, err
	}
	details.Initiator = initiator
	details.Reason = strings.TrimSpace(details.Reason)
	if err := details.Validate(); err != nil {
		return p, err
	}

	out := p.Clone()
	out.Status = to
	out.Termination = &details
	return out, nil
}

func (m *StatusMachine) simple(p Policy, action Action) (Policy, error) {
	to, err := Next(p.Status, action)
	if err != nil {
		return p, err
	}
	out := p.Clone()
	out.Status = to
	return out, nil
}

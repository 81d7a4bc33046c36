package slips

import (
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// Status is the closed set of slip states
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusQuoted    Status = "QUOTED"
	StatusSigned    Status = "SIGNED"
	StatusSent      Status = "SENT"
	StatusBound     Status = "BOUND"
	StatusClosed    Status = "CLOSED"
	StatusDeclined  Status = "DECLINED"
	StatusNTU       Status = "NTU"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus normalizes stored status text. The legacy value "Active" reads as BOUND.
func ParseStatus(s string) (Status, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch v {
	case "", "DRAFT":
		return StatusDraft, nil
	case "PENDING", "UNDER_REVIEW":
		return StatusPending, nil
	case "QUOTED":
		return StatusQuoted, nil
	case "SIGNED":
		return StatusSigned, nil
	case "SENT":
		return StatusSent, nil
	case "BOUND", "ACTIVE":
		return StatusBound, nil
	case "CLOSED":
		return StatusClosed, nil
	case "DECLINED":
		return StatusDeclined, nil
	case "NTU", "NOT_TAKEN_UP", "WITHDRAWN":
		return StatusNTU, nil
	case "CANCELLED", "CANCELED":
		return StatusCancelled, nil
	}
	return "", domain.NewValidationError("status", "unknown slip status %q", s)
}

// Action is a requested slip transition
type Action string

const (
	ActionSubmitForReview Action = "submit_for_review"
	ActionMarkQuoted      Action = "mark_quoted"
	ActionDecline         Action = "decline"
	ActionSignAndAccept   Action = "sign_and_accept"
	ActionMarkNTU         Action = "mark_not_taken_up"
	ActionSendToReinsurer Action = "send_to_reinsurer"
	ActionConfirmBound    Action = "confirm_bound"
	ActionCloseSlip       Action = "close_slip"
	ActionReopen          Action = "reopen"
	ActionCancel          Action = "cancel"
)

var allActions = []Action{
	ActionSubmitForReview, ActionMarkQuoted, ActionDecline, ActionSignAndAccept, ActionMarkNTU,
	ActionSendToReinsurer, ActionConfirmBound, ActionCloseSlip, ActionReopen, ActionCancel,
}

// ParseAction accepts snake_case, kebab-case or camelCase action names.
func ParseAction(s string) (Action, error) {
	v := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(s)))
	for _, a := range allActions {
		if strings.ReplaceAll(string(a), "_", "") == v {
			return a, nil
		}
	}
	if v == "withdraw" {
		return ActionMarkNTU, nil
	}
	return "", domain.NewValidationError("action", "unknown slip action %q", s)
}

// Date fields stamped by transitions
const (
	FieldSignedDate   = "signed_date"
	FieldSentDate     = "sent_date"
	FieldBoundDate    = "bound_date"
	FieldClosedDate   = "closed_date"
	FieldDeclinedDate = "declined_date"
)

type edge struct {
	to    Status
	stamp string
}

var transitions = map[Status]map[Action]edge{
	StatusDraft: {
		ActionSubmitForReview: {to: StatusPending},
		ActionCancel:          {to: StatusCancelled},
	},
	StatusPending: {
		ActionMarkQuoted: {to: StatusQuoted},
		ActionDecline:    {to: StatusDeclined, stamp: FieldDeclinedDate},
		ActionCancel:     {to: StatusCancelled},
	},
	StatusQuoted: {
		ActionSignAndAccept: {to: StatusSigned, stamp: FieldSignedDate},
		ActionMarkNTU:       {to: StatusNTU},
		ActionCancel:        {to: StatusCancelled},
	},
	StatusSigned: {
		ActionSendToReinsurer: {to: StatusSent, stamp: FieldSentDate},
		ActionCancel:          {to: StatusCancelled},
	},
	StatusSent: {
		ActionConfirmBound: {to: StatusBound, stamp: FieldBoundDate},
		ActionMarkNTU:      {to: StatusNTU},
	},
	StatusBound: {
		ActionCloseSlip: {to: StatusClosed, stamp: FieldClosedDate},
	},
	StatusDeclined:  {ActionReopen: {to: StatusPending}},
	StatusNTU:       {ActionReopen: {to: StatusPending}},
	StatusCancelled: {ActionReopen: {to: StatusPending}},
}

// AvailableActions lists the actions permitted from s in a stable order.
func AvailableActions(s Status) []Action {
	var out []Action
	for _, a := range allActions {
		if _, ok := transitions[s][a]; ok {
			out = append(out, a)
		}
	}
	return out
}

// ErrPromptCancelled is returned by Decline when the user dismissed the reason prompt.
var ErrPromptCancelled = &domain.ValidationError{Field: "reason", Message: "decline cancelled, no reason given"}

// Request asks the machine for a transition. Reason is only read by Decline; nil
// means the prompt was dismissed.
type Request struct {
	Action Action
	Reason *string
}

// Stamp is a date field set as a side effect of a transition.
type Stamp struct {
	Field string    `json:"field"`
	At    time.Time `json:"at"`
}

// Outcome is the result of a permitted transition.
type Outcome struct {
	Status        Status  `json:"status"`
	Stamp         *Stamp  `json:"stamp,omitempty"`
	DeclineReason *string `json:"decline_reason,omitempty"`
}

// ApplyTo merges the outcome into s.
func (o Outcome) ApplyTo(s *Slip) {
	s.Status = o.Status
	if o.DeclineReason != nil {
		s.DeclineReason = *o.DeclineReason
	}
	if o.Stamp == nil {
		return
	}
	at := o.Stamp.At
	switch o.Stamp.Field {
	case FieldSignedDate:
		s.SignedDate = &at
	case FieldSentDate:
		s.SentDate = &at
	case FieldBoundDate:
		s.BoundDate = &at
	case FieldClosedDate:
		s.ClosedDate = &at
	case FieldDeclinedDate:
		s.DeclinedDate = &at
	}
}

// Machine decides slip transitions. It never touches a slip itself.
type Machine struct {
	now func() time.Time
}

// NewMachine creates a machine that stamps dates with the wall clock.
func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// NewMachineWithClock creates a machine with a fixed clock.
func NewMachineWithClock(now func() time.Time) *Machine {
	return &Machine{now: now}
}

// Next is total over (status, action): every pair yields an Outcome or an error.
func (m *Machine) Next(from Status, req Request) (Outcome, error) {
	e, ok := transitions[from][req.Action]
	if !ok {
		return Outcome{}, &domain.InvalidTransitionError{Machine: "slip", From: string(from), Action: string(req.Action)}
	}

	out := Outcome{Status: e.to}
	if req.Action == ActionDecline {
		if req.Reason == nil {
			return Outcome{}, ErrPromptCancelled
		}
		reason := strings.TrimSpace(*req.Reason)
		if reason == "" {
			return Outcome{}, domain.NewValidationError("reason", "a decline reason is required")
		}
		out.DeclineReason = &reason
	}
	if e.stamp != "" {
		out.Stamp = &Stamp{Field: e.stamp, At: m.now().UTC()}
	}
	return out, nil
}

// Apply runs req against s and returns the updated copy. On error s is returned unchanged.
func (m *Machine) Apply(s Slip, req Request) (Slip, Outcome, error) {
	o, err := m.Next(s.Status, req)
	if err != nil {
		return s, Outcome{}, err
	}
	out := s.Clone()
	o.ApplyTo(&out)
	return out, o, nil
}

func (m *Machine) SubmitForReview(s Slip) (Slip, error) { return m.simple(s, ActionSubmitForReview) }
func (m *Machine) MarkQuoted(s Slip) (Slip, error)      { return m.simple(s, ActionMarkQuoted) }
func (m *Machine) SignAndAccept(s Slip) (Slip, error)   { return m.simple(s, ActionSignAndAccept) }
func (m *Machine) MarkNotTakenUp(s Slip) (Slip, error)  { return m.simple(s, ActionMarkNTU) }
func (m *Machine) SendToReinsurer(s Slip) (Slip, error) { return m.simple(s, ActionSendToReinsurer) }
func (m *Machine) ConfirmBound(s Slip) (Slip, error)    { return m.simple(s, ActionConfirmBound) }
func (m *Machine) CloseSlip(s Slip) (Slip, error)       { return m.simple(s, ActionCloseSlip) }
func (m *Machine) Reopen(s Slip) (Slip, error)          { return m.simple(s, ActionReopen) }
func (m *Machine) Cancel(s Slip) (Slip, error)          { return m.simple(s, ActionCancel) }

// Decline moves PENDING to DECLINED with a reason. A nil reason aborts with
// ErrPromptCancelled.
func (m *Machine) Decline(s Slip, reason *string) (Slip, error) {
	out, _, err := m.Apply(s, Request{Action: ActionDecline, Reason: reason})
	return out, err
}

func (m *Machine) simple(s Slip, a Action) (Slip, error) {
	out, _, err := m.Apply(s, Request{Action: a})
	return out, err
}

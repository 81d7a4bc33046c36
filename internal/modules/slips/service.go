package slips

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/mosaic-erp/reinsurance/internal/modules/allocation"
	"github.com/mosaic-erp/reinsurance/internal/optimistic"
	"github.com/rs/zerolog"
)

// CreateInput carries the fields of a new slip.
type CreateInput struct {
	SlipNumber       string
	Date             *time.Time
	InsuredName      string
	Currency         string
	LimitOfLiability float64
	Reinsurers       []domain.Reinsurer
}

// DetailsInput is a partial edit of the slip header; nil fields are unchanged.
type DetailsInput struct {
	SlipNumber       *string
	Date             *time.Time
	InsuredName      *string
	Currency         *string
	LimitOfLiability *float64
}

// Service coordinates slip edits and transitions.
type Service struct {
	repo    Repository
	machine *Machine
	events  *events.Manager
	view    *optimistic.List[Slip]
	log     zerolog.Logger
}

// NewService creates the slip service. machine and eventManager may be nil.
func NewService(repo Repository, machine *Machine, eventManager *events.Manager, log zerolog.Logger) *Service {
	if machine == nil {
		machine = NewMachine()
	}
	return &Service{
		repo:    repo,
		machine: machine,
		events:  eventManager,
		view:    optimistic.New(func(s Slip) string { return s.ID }),
		log:     log.With().Str("service", "slips").Logger(),
	}
}

// Create stores a new DRAFT slip.
func (s *Service) Create(ctx context.Context, in CreateInput) (Slip, error) {
	if in.LimitOfLiability < 0 {
		return Slip{}, domain.NewValidationError("limit_of_liability", "must not be negative")
	}
	slip := Slip{
		ID:               uuid.New().String(),
		SlipNumber:       strings.TrimSpace(in.SlipNumber),
		Date:             in.Date,
		InsuredName:      strings.TrimSpace(in.InsuredName),
		Currency:         domain.NormalizeCurrency(in.Currency),
		LimitOfLiability: in.LimitOfLiability,
		Status:           StatusDraft,
	}
	var panel domain.Panel
	for _, r := range in.Reinsurers {
		var err error
		if panel, _, err = panel.Add(r); err != nil {
			return Slip{}, err
		}
	}
	if err := allocation.ValidatePanel(panel); err != nil {
		return Slip{}, err
	}
	slip.SetPanel(panel)

	saved, err := s.view.Apply(ctx, slip, s.repo.SaveSlip)
	if err != nil {
		return Slip{}, err
	}
	s.log.Info().Str("slip_id", saved.ID).Str("slip_number", saved.SlipNumber).Msg("Slip created")
	return saved, nil
}

// Get returns the working copy of a slip.
func (s *Service) Get(ctx context.Context, id string) (Slip, error) {
	if slip, ok := s.view.Get(id); ok {
		return slip.Clone(), nil
	}
	return s.repo.GetSlip(ctx, id)
}

// List returns slips matching filter, loading the working set on first use.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Slip, error) {
	if !s.view.Loaded() {
		all, err := s.repo.ListSlips(ctx, ListFilter{IncludeDeleted: true})
		if err != nil {
			return nil, err
		}
		s.view.Replace(all)
	}
	var out []Slip
	for _, slip := range s.view.Items() {
		if filter.Matches(slip) {
			out = append(out, slip.Clone())
		}
	}
	return out, nil
}

// UpdateDetails edits header fields.
func (s *Service) UpdateDetails(ctx context.Context, id string, in DetailsInput) (Slip, error) {
	return s.edit(ctx, id, func(slip *Slip) error {
		if in.SlipNumber != nil {
			slip.SlipNumber = strings.TrimSpace(*in.SlipNumber)
		}
		if in.Date != nil {
			d := *in.Date
			slip.Date = &d
		}
		if in.InsuredName != nil {
			slip.InsuredName = strings.TrimSpace(*in.InsuredName)
		}
		if in.Currency != nil {
			slip.Currency = domain.NormalizeCurrency(*in.Currency)
		}
		if in.LimitOfLiability != nil {
			if *in.LimitOfLiability < 0 {
				return domain.NewValidationError("limit_of_liability", "must not be negative")
			}
			slip.LimitOfLiability = *in.LimitOfLiability
		}
		return nil
	})
}

// AddReinsurer appends a panel entry.
func (s *Service) AddReinsurer(ctx context.Context, id string, r domain.Reinsurer) (Slip, error) {
	return s.edit(ctx, id, func(slip *Slip) error {
		panel, _, err := slip.Reinsurers.Add(r)
		if err != nil {
			return err
		}
		return setPanel(slip, panel)
	})
}

// UpdateReinsurer edits panel entry entryID.
func (s *Service) UpdateReinsurer(ctx context.Context, id, entryID string, patch domain.ReinsurerPatch) (Slip, error) {
	return s.edit(ctx, id, func(slip *Slip) error {
		panel, err := slip.Reinsurers.Update(entryID, patch)
		if err != nil {
			return err
		}
		return setPanel(slip, panel)
	})
}

// RemoveReinsurer drops panel entry entryID.
func (s *Service) RemoveReinsurer(ctx context.Context, id, entryID string) (Slip, error) {
	return s.edit(ctx, id, func(slip *Slip) error {
		panel, err := slip.Reinsurers.Remove(entryID)
		if err != nil {
			return err
		}
		return setPanel(slip, panel)
	})
}

func setPanel(slip *Slip, panel domain.Panel) error {
	if err := allocation.ValidatePanel(panel); err != nil {
		return err
	}
	slip.SetPanel(panel)
	return nil
}

// Transition runs req against the slip and persists the outcome.
func (s *Service) Transition(ctx context.Context, id string, req Request) (Slip, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Slip{}, err
	}
	if current.Deleted {
		return current, domain.NewValidationError("id", "slip %s is deleted", id)
	}

	next, outcome, err := s.machine.Apply(current, req)
	if err != nil {
		return current, err
	}

	saved, err := s.view.Apply(ctx, next, s.repo.SaveSlip)
	if err != nil {
		s.log.Error().Err(err).Str("slip_id", id).Str("action", string(req.Action)).Msg("Failed to persist transition")
		return current, err
	}

	data := &events.StatusChangedData{
		RecordID: saved.ID,
		Kind:     "slip",
		Action:   string(req.Action),
		From:     string(current.Status),
		To:       string(saved.Status),
	}
	if outcome.Stamp != nil {
		data.Stamped = outcome.Stamp.Field
	}
	s.events.EmitTyped("slips", data)

	s.log.Info().
		Str("slip_id", saved.ID).
		Str("from", string(current.Status)).
		Str("to", string(saved.Status)).
		Msg("Slip status changed")
	return saved, nil
}

// Delete soft-deletes a slip.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, true)
}

// Restore undoes a soft delete.
func (s *Service) Restore(ctx context.Context, id string) error {
	return s.setDeleted(ctx, id, false)
}

func (s *Service) setDeleted(ctx context.Context, id string, deleted bool) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	next := current.Clone()
	next.Deleted = deleted

	persist := s.repo.DeleteSlip
	if !deleted {
		persist = s.repo.RestoreSlip
	}
	if _, err := s.view.Apply(ctx, next, func(ctx context.Context, slip Slip) (Slip, error) {
		if err := persist(ctx, slip.ID); err != nil {
			return Slip{}, err
		}
		return slip, nil
	}); err != nil {
		return err
	}

	s.events.EmitTyped("slips", &events.RecordLifecycleData{RecordID: id, Kind: "slip", Deleted: deleted})
	return nil
}

func (s *Service) edit(ctx context.Context, id string, fn func(*Slip) error) (Slip, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Slip{}, err
	}
	if current.Deleted {
		return current, domain.NewValidationError("id", "slip %s is deleted", id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return current, err
	}
	saved, err := s.view.Apply(ctx, next, s.repo.SaveSlip)
	if err != nil {
		s.log.Error().Err(err).Str("slip_id", id).Msg("Failed to save slip")
		return current, err
	}
	return saved, nil
}

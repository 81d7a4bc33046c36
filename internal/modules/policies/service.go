package policies

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/mosaic-erp/reinsurance/internal/modules/allocation"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/optimistic"
	"github.com/rs/zerolog"
)

// Warnings surfaced to the caller alongside a successful mutation.
const (
	WarningOverCeded       = "ceded share exceeds 100%"
	WarningRateUnavailable = "exchange rate unavailable, enter it manually"
)

// Result is a persisted policy plus any soft warnings the edit produced.
type Result struct {
	Policy   Policy   `json:"policy"`
	Warnings []string `json:"warnings,omitempty"`
}

// AmountInput sets one side of an amount pair.
type AmountInput struct {
	Side  currency.Side `json:"side"`
	Value float64       `json:"value"`
}

// CreateInput carries the fields of a new policy.
type CreateInput struct {
	Reference     string
	Channel       string
	Currency      string
	ExchangeRate  float64
	GrossPremium  float64
	CommissionPct float64
	TaxPct        float64
	SumInsured    *AmountInput
	Limit         *AmountInput
	Excess        *AmountInput
	Reinsurers    []domain.Reinsurer

	InsuredName      string
	CedantName       string
	BrokerName       string
	ClassOfBusiness  string
	Territory        string
	OurSharePct      *float64
	Structure        string
	InceptionDate    *time.Time
	ExpiryDate       *time.Time
	UnderwritingYear int
}

// FinancialsInput is a partial edit of the premium terms; nil fields are unchanged.
type FinancialsInput struct {
	Currency      *string
	ExchangeRate  *float64
	GrossPremium  *float64
	CommissionPct *float64
	TaxPct        *float64
	SumInsured    *AmountInput
	Limit         *AmountInput
	Excess        *AmountInput
}

// Service coordinates edits of policies: it recomputes derived financials, runs status
// transitions, persists through the repository and publishes lifecycle events.
type Service struct {
	repo     Repository
	machine  *StatusMachine
	rates    *currency.RateService
	events   *events.Manager
	national domain.Currency
	strict   bool
	view     *optimistic.List[Policy]
	log      zerolog.Logger
}

// NewService creates the policy service. rates and eventManager may be nil.
func NewService(
	repo Repository,
	machine *StatusMachine,
	rates *currency.RateService,
	eventManager *events.Manager,
	national domain.Currency,
	strictPanel bool,
	log zerolog.Logger,
) *Service {
	if machine == nil {
		machine = NewStatusMachine()
	}
	if rates != nil {
		national = rates.NationalCurrency()
	}
	return &Service{
		repo:     repo,
		machine:  machine,
		rates:    rates,
		events:   eventManager,
		national: domain.NormalizeCurrency(string(national)),
		strict:   strictPanel,
		view:     optimistic.New(func(p Policy) string { return p.ID }),
		log:      log.With().Str("service", "policies").Logger(),
	}
}

// Create validates and stores a new PENDING policy.
func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	channel, err := domain.ParseChannel(in.Channel)
	if err != nil {
		return Result{}, err
	}

	p := Policy{
		ID:               uuid.New().String(),
		Reference:        strings.TrimSpace(in.Reference),
		Channel:          channel,
		Status:           StatusPending,
		Currency:         domain.NormalizeCurrency(in.Currency),
		NationalCurrency: s.national,
		GrossPremium:     in.GrossPremium,
		CommissionPct:    in.CommissionPct,
		TaxPct:           in.TaxPct,
		InsuredName:      strings.TrimSpace(in.InsuredName),
		CedantName:       strings.TrimSpace(in.CedantName),
		BrokerName:       strings.TrimSpace(in.BrokerName),
		ClassOfBusiness:  strings.TrimSpace(in.ClassOfBusiness),
		Territory:        strings.TrimSpace(in.Territory),
		OurSharePct:      100,
		Structure:        ParseStructure(in.Structure),
		InceptionDate:    in.InceptionDate,
		ExpiryDate:       in.ExpiryDate,
		UnderwritingYear: in.UnderwritingYear,
	}
	if in.OurSharePct != nil {
		if *in.OurSharePct < 0 || *in.OurSharePct > 100 {
			return Result{}, domain.NewValidationError("our_share_pct", "must be between 0 and 100")
		}
		p.OurSharePct = *in.OurSharePct
	}

	for _, r := range in.Reinsurers {
		if p.Reinsurers, _, err = p.Reinsurers.Add(r); err != nil {
			return Result{}, err
		}
	}

	var warnings []string
	switch {
	case p.Currency == s.national:
		p.ExchangeRate = 1
	case in.ExchangeRate > 0:
		p.ExchangeRate = in.ExchangeRate
	case in.ExchangeRate < 0:
		return Result{}, domain.NewValidationError("exchange_rate", "must not be negative")
	case s.rates != nil:
		if _, err := s.rates.RefreshPolicyRate(ctx, &p); err != nil {
			warnings = append(warnings, WarningRateUnavailable)
		}
	}

	if err := applyAmounts(&p, in.SumInsured, in.Limit, in.Excess); err != nil {
		return Result{}, err
	}

	warnings, err = s.recompute(&p, warnings)
	if err != nil {
		return Result{}, err
	}

	saved, err := s.view.Apply(ctx, p, s.repo.SavePolicy)
	if err != nil {
		s.log.Error().Err(err).Str("policy_id", p.ID).Msg("Failed to create policy")
		return Result{}, err
	}

	s.log.Info().
		Str("policy_id", saved.ID).
		Str("reference", saved.Reference).
		Str("channel", string(saved.Channel)).
		Msg("Policy created")
	s.emitFinancials(saved)
	return Result{Policy: saved, Warnings: warnings}, nil
}

// Get returns the working copy of a policy.
func (s *Service) Get(ctx context.Context, id string) (Policy, error) {
	if p, ok := s.view.Get(id); ok {
		return p.Clone(), nil
	}
	return s.repo.GetPolicy(ctx, id)
}

// List returns policies matching filter from the working set, loading it on first use.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Policy, error) {
	if !s.view.Loaded() {
		all, err := s.repo.ListPolicies(ctx, ListFilter{IncludeDeleted: true})
		if err != nil {
			return nil, err
		}
		s.view.Replace(all)
	}

	var out []Policy
	for _, p := range s.view.Items() {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// Reload drops the working set so the next List reads from the repository.
func (s *Service) Reload() {
	s.view.Invalidate()
}

// UpdateFinancials edits premium terms, currency or amounts and recomputes.
func (s *Service) UpdateFinancials(ctx context.Context, id string, in FinancialsInput) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		var warnings []string
		if in.Currency != nil {
			p.Currency = domain.NormalizeCurrency(*in.Currency)
			if p.Currency == s.national {
				p.ApplyRate(1)
			} else if in.ExchangeRate == nil && s.rates != nil {
				if _, err := s.rates.RefreshPolicyRate(ctx, p); err != nil {
					warnings = append(warnings, WarningRateUnavailable)
				}
			}
		}
		if in.ExchangeRate != nil {
			if *in.ExchangeRate < 0 {
				return nil, domain.NewValidationError("exchange_rate", "must not be negative")
			}
			p.ApplyRate(*in.ExchangeRate)
		}
		if in.GrossPremium != nil {
			p.GrossPremium = *in.GrossPremium
		}
		if in.CommissionPct != nil {
			p.CommissionPct = *in.CommissionPct
		}
		if in.TaxPct != nil {
			p.TaxPct = *in.TaxPct
		}
		if err := applyAmounts(p, in.SumInsured, in.Limit, in.Excess); err != nil {
			return nil, err
		}
		return warnings, nil
	}, true)
}

// AddReinsurer appends a panel entry. The entry receives a fresh ID when none is given.
func (s *Service) AddReinsurer(ctx context.Context, id string, r domain.Reinsurer) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		panel, _, err := p.Reinsurers.Add(r)
		if err != nil {
			return nil, err
		}
		p.Reinsurers = panel
		return nil, nil
	}, true)
}

// UpdateReinsurer edits the panel entry entryID.
func (s *Service) UpdateReinsurer(ctx context.Context, id, entryID string, patch domain.ReinsurerPatch) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		panel, err := p.Reinsurers.Update(entryID, patch)
		if err != nil {
			return nil, err
		}
		p.Reinsurers = panel
		return nil, nil
	}, true)
}

// RemoveReinsurer drops the panel entry entryID.
func (s *Service) RemoveReinsurer(ctx context.Context, id, entryID string) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		panel, err := p.Reinsurers.Remove(entryID)
		if err != nil {
			return nil, err
		}
		p.Reinsurers = panel
		return nil, nil
	}, true)
}

// AddInstallment schedules a premium installment.
func (s *Service) AddInstallment(ctx context.Context, id string, due time.Time, amount float64) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		schedule, _, err := p.Installments.Add(due, amount)
		if err != nil {
			return nil, err
		}
		p.Installments = schedule
		return nil, nil
	}, false)
}

// MarkInstallmentPaid records a payment against an installment.
func (s *Service) MarkInstallmentPaid(ctx context.Context, id, installmentID string, paidAt time.Time, amount float64) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		schedule, err := p.Installments.MarkPaid(installmentID, paidAt, amount)
		if err != nil {
			return nil, err
		}
		p.Installments = schedule
		return nil, nil
	}, false)
}

// RemoveInstallment drops an installment from the schedule.
func (s *Service) RemoveInstallment(ctx context.Context, id, installmentID string) (Result, error) {
	return s.edit(ctx, id, func(p *Policy) ([]string, error) {
		schedule, err := p.Installments.Remove(installmentID)
		if err != nil {
			return nil, err
		}
		p.Installments = schedule
		return nil, nil
	}, false)
}

// RefreshRate fetches the latest national rate for the policy currency. When the
// provider fails nothing is saved and the RateLookupError is returned.
func (s *Service) RefreshRate(ctx context.Context, id string) (Result, error) {
	if s.rates == nil {
		return Result{}, &domain.RateLookupError{Currency: "", Err: errNoRateService}
	}
	res, err := s.edit(ctx, id, func(p *Policy) ([]string, error) {
		_, err := s.rates.RefreshPolicyRate(ctx, p)
		return nil, err
	}, false)
	if err != nil {
		return res, err
	}
	s.events.EmitTyped("policies", &events.ExchangeRateUpdatedData{
		Currency: string(res.Policy.Currency),
		Rate:     res.Policy.ExchangeRate,
		PolicyID: res.Policy.ID,
		Source:   "refresh",
	})
	return res, nil
}

// Activate moves a PENDING policy to ACTIVE.
func (s *Service) Activate(ctx context.Context, id string, doc *SignedDocument) (Result, error) {
	var warnings []string
	res, err := s.transition(ctx, id, ActionActivate, func(p Policy) (Policy, error) {
		next, w, err := s.machine.Activate(p, doc)
		warnings = w
		return next, err
	})
	if err != nil {
		return res, err
	}
	res.Warnings = append(res.Warnings, warnings...)
	return res, nil
}

// MarkNotTakenUp moves a PENDING policy to NTU.
func (s *Service) MarkNotTakenUp(ctx context.Context, id string) (Result, error) {
	return s.transition(ctx, id, ActionMarkNTU, s.machine.MarkNotTakenUp)
}

// Cancel moves a PENDING or ACTIVE policy to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id string) (Result, error) {
	return s.transition(ctx, id, ActionCancel, s.machine.Cancel)
}

// TerminateEarly moves an ACTIVE policy to EARLY_TERMINATION.
func (s *Service) TerminateEarly(ctx context.Context, id string, details TerminationDetail) (Result, error) {
	return s.transition(ctx, id, ActionTerminateEarly, func(p Policy) (Policy, error) {
		return s.machine.TerminateEarly(p, details)
	})
}

// Delete soft-deletes a policy.
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

	persist := s.repo.DeletePolicy
	if !deleted {
		persist = s.repo.RestorePolicy
	}
	_, err = s.view.Apply(ctx, next, func(ctx context.Context, p Policy) (Policy, error) {
		if err := persist(ctx, p.ID); err != nil {
			return Policy{}, err
		}
		return p, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("policy_id", id).Bool("deleted", deleted).Msg("Failed to change deleted flag")
		return err
	}

	s.events.EmitTyped("policies", &events.RecordLifecycleData{RecordID: id, Kind: "policy", Deleted: deleted})
	return nil
}

// edit loads a policy, applies fn to a copy and persists it. When recompute is set the
// derived financials are refreshed and panel validation runs before saving.
func (s *Service) edit(ctx context.Context, id string, fn func(p *Policy) ([]string, error), recompute bool) (Result, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if current.Deleted {
		return Result{Policy: current}, domain.NewValidationError("id", "policy %s is deleted", id)
	}

	next := current.Clone()
	warnings, err := fn(&next)
	if err != nil {
		return Result{Policy: current}, err
	}
	if recompute {
		if warnings, err = s.recompute(&next, warnings); err != nil {
			return Result{Policy: current}, err
		}
	}

	saved, err := s.view.Apply(ctx, next, s.repo.SavePolicy)
	if err != nil {
		s.log.Error().Err(err).Str("policy_id", id).Msg("Failed to save policy")
		return Result{Policy: current}, err
	}
	if recompute {
		s.emitFinancials(saved)
	}
	return Result{Policy: saved, Warnings: warnings}, nil
}

func (s *Service) transition(ctx context.Context, id string, action Action, apply func(Policy) (Policy, error)) (Result, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if current.Deleted {
		return Result{Policy: current}, domain.NewValidationError("id", "policy %s is deleted", id)
	}

	next, err := apply(current.Clone())
	if err != nil {
		return Result{Policy: current}, err
	}

	saved, err := s.view.Apply(ctx, next, s.repo.SavePolicy)
	if err != nil {
		s.log.Error().Err(err).Str("policy_id", id).Str("action", string(action)).Msg("Failed to persist transition")
		return Result{Policy: current}, err
	}

	data := &events.StatusChangedData{
		RecordID: saved.ID,
		Kind:     "policy",
		Action:   string(action),
		From:     string(current.Status),
		To:       string(saved.Status),
	}
	if action == ActionActivate {
		data.Stamped = "activation_date"
	}
	s.events.EmitTyped("policies", data)

	s.log.Info().
		Str("policy_id", saved.ID).
		Str("from", string(current.Status)).
		Str("to", string(saved.Status)).
		Msg("Policy status changed")
	return Result{Policy: saved}, nil
}

func (s *Service) recompute(p *Policy, warnings []string) ([]string, error) {
	if err := allocation.Validate(p.Terms(), s.strict); err != nil {
		return warnings, err
	}
	p.Recompute()
	if p.OverCeded {
		warnings = append(warnings, WarningOverCeded)
	}
	return warnings, nil
}

func (s *Service) emitFinancials(p Policy) {
	s.events.EmitTyped("policies", &events.FinancialsRecomputedData{
		PolicyID:              p.ID,
		NetPremium:            p.NetPremium,
		CededShare:            p.CededShare,
		CededPremiumForeign:   p.CededPremiumForeign,
		NetReinsurancePremium: p.NetReinsurancePremium,
		OverCeded:             p.OverCeded,
	})
}

func applyAmounts(p *Policy, sumInsured, limit, excess *AmountInput) error {
	set := func(field string, dst *currency.AmountPair, in *AmountInput) error {
		if in == nil {
			return nil
		}
		if in.Value < 0 {
			return domain.NewValidationError(field, "must not be negative")
		}
		side := in.Side
		if side == "" {
			side = currency.SideWritten
		}
		side, err := currency.ParseSide(string(side))
		if err != nil {
			return err
		}
		*dst = dst.Set(side, in.Value, p.ExchangeRate)
		return nil
	}
	if err := set("sum_insured", &p.SumInsured, sumInsured); err != nil {
		return err
	}
	if err := set("limit", &p.Limit, limit); err != nil {
		return err
	}
	return set("excess", &p.Excess, excess)
}

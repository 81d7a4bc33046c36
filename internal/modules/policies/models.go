// Package policies manages direct, inward and outward policy records: their status
// life cycle, reinsurance panel, installment schedule and derived financials.
package policies

import (
	"errors"
	"strings"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/allocation"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
)

// Initiator is the party that asked for an early termination
type Initiator string

const (
	InitiatorUs     Initiator = "Us"
	InitiatorBroker Initiator = "Broker"
	InitiatorCedant Initiator = "Cedant"
	InitiatorOther  Initiator = "Other"
)

// ParseInitiator normalizes an initiator name case-insensitively.
func ParseInitiator(s string) (Initiator, error) {
	for _, i := range []Initiator{InitiatorUs, InitiatorBroker, InitiatorCedant, InitiatorOther} {
		if strings.EqualFold(strings.TrimSpace(s), string(i)) {
			return i, nil
		}
	}
	return "", domain.NewValidationError("initiator", "must be one of Us, Broker, Cedant, Other; got %q", s)
}

// TerminationDetail records why and when a policy was terminated early.
type TerminationDetail struct {
	Date      time.Time `json:"date" msgpack:"date"`
	Initiator Initiator `json:"initiator" msgpack:"initiator"`
	Reason    string    `json:"reason" msgpack:"reason"`
}

// Validate checks every field is present.
func (d TerminationDetail) Validate() error {
	if d.Date.IsZero() {
		return domain.NewValidationError("termination.date", "is required")
	}
	if _, err := ParseInitiator(string(d.Initiator)); err != nil {
		return err
	}
	if strings.TrimSpace(d.Reason) == "" {
		return domain.NewValidationError("termination.reason", "is required")
	}
	return nil
}

// SignedDocument is metadata of the signed contract. Storage is handled elsewhere.
type SignedDocument struct {
	Name        string    `json:"name" msgpack:"name"`
	StorageRef  string    `json:"storage_ref" msgpack:"storage_ref"`
	ContentType string    `json:"content_type,omitempty" msgpack:"content_type"`
	Size        int64     `json:"size,omitempty" msgpack:"size"`
	UploadedAt  time.Time `json:"uploaded_at" msgpack:"uploaded_at"`
}

// Structure distinguishes proportional from excess-of-loss style treaties
type Structure string

const (
	StructureProportional    Structure = "PROPORTIONAL"
	StructureNonProportional Structure = "NON_PROPORTIONAL"
)

// ParseStructure maps free-text structure labels; anything mentioning "non" or
// "xl"/"excess" is non-proportional, everything else proportional.
func ParseStructure(s string) Structure {
	v := strings.ToLower(s)
	if strings.Contains(v, "non") || strings.Contains(v, "xl") || strings.Contains(v, "excess") {
		return StructureNonProportional
	}
	return StructureProportional
}

// Policy is a direct, inward or outward contract record.
type Policy struct {
	ID        string         `json:"id" msgpack:"id"`
	Reference string         `json:"reference" msgpack:"reference"`
	Channel   domain.Channel `json:"channel" msgpack:"channel"`
	Status    Status         `json:"status" msgpack:"status"`

	ActivationDate *time.Time `json:"activation_date,omitempty" msgpack:"activation_date"`

	Currency         domain.Currency `json:"currency" msgpack:"currency"`
	NationalCurrency domain.Currency `json:"national_currency" msgpack:"national_currency"`
	// ExchangeRate is national units per one written unit.
	ExchangeRate float64 `json:"exchange_rate" msgpack:"exchange_rate"`

	GrossPremium  float64 `json:"gross_premium" msgpack:"gross_premium"`
	CommissionPct float64 `json:"commission_pct" msgpack:"commission_pct"`
	TaxPct        float64 `json:"tax_pct" msgpack:"tax_pct"`

	SumInsured currency.AmountPair `json:"sum_insured" msgpack:"sum_insured"`
	Limit      currency.AmountPair `json:"limit" msgpack:"limit"`
	Excess     currency.AmountPair `json:"excess" msgpack:"excess"`

	Reinsurers domain.Panel `json:"reinsurers" msgpack:"reinsurers"`
	allocation.Derived

	Installments Installments `json:"installments" msgpack:"installments"`

	InsuredName      string    `json:"insured_name,omitempty" msgpack:"insured_name"`
	CedantName       string    `json:"cedant_name,omitempty" msgpack:"cedant_name"`
	BrokerName       string    `json:"broker_name,omitempty" msgpack:"broker_name"`
	ClassOfBusiness  string    `json:"class_of_business,omitempty" msgpack:"class_of_business"`
	Territory        string    `json:"territory,omitempty" msgpack:"territory"`
	OurSharePct      float64   `json:"our_share_pct" msgpack:"our_share_pct"`
	Structure        Structure `json:"structure,omitempty" msgpack:"structure"`
	InceptionDate    *time.Time `json:"inception_date,omitempty" msgpack:"inception_date"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty" msgpack:"expiry_date"`
	UnderwritingYear int       `json:"underwriting_year,omitempty" msgpack:"underwriting_year"`

	Termination    *TerminationDetail `json:"termination,omitempty" msgpack:"termination"`
	SignedDocument *SignedDocument    `json:"signed_document,omitempty" msgpack:"signed_document"`

	Deleted   bool      `json:"deleted" msgpack:"deleted"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Clone returns a copy that shares no mutable state with p.
func (p Policy) Clone() Policy {
	out := p
	out.Reinsurers = p.Reinsurers.Clone()
	out.Installments = p.Installments.Clone()
	if p.ActivationDate != nil {
		t := *p.ActivationDate
		out.ActivationDate = &t
	}
	if p.InceptionDate != nil {
		t := *p.InceptionDate
		out.InceptionDate = &t
	}
	if p.ExpiryDate != nil {
		t := *p.ExpiryDate
		out.ExpiryDate = &t
	}
	if p.Termination != nil {
		d := *p.Termination
		out.Termination = &d
	}
	if p.SignedDocument != nil {
		d := *p.SignedDocument
		out.SignedDocument = &d
	}
	return out
}

// Terms returns the allocation inputs of p.
func (p Policy) Terms() allocation.Terms {
	return allocation.Terms{
		GrossPremium:  p.GrossPremium,
		CommissionPct: p.CommissionPct,
		TaxPct:        p.TaxPct,
		Panel:         p.Reinsurers,
	}
}

// ApplyDerived replaces every derived financial field with d.
func (p *Policy) ApplyDerived(d allocation.Derived) {
	p.Derived = d
}

// Recompute recalculates the derived financials from the current terms.
func (p *Policy) Recompute() {
	p.ApplyDerived(allocation.Recompute(p.Terms()))
}

// WrittenCurrency implements currency.RateTarget.
func (p *Policy) WrittenCurrency() domain.Currency { return p.Currency }

// CurrentRate implements currency.RateTarget.
func (p *Policy) CurrentRate() float64 { return p.ExchangeRate }

// ApplyRate sets the exchange rate and recomputes the derived side of every amount pair.
func (p *Policy) ApplyRate(rate float64) {
	p.ExchangeRate = rate
	p.SumInsured = p.SumInsured.Rebase(rate)
	p.Limit = p.Limit.Rebase(rate)
	p.Excess = p.Excess.Rebase(rate)
}

var errNoRateService = errors.New("no exchange rate service configured")

// Package slips tracks outward reinsurance slips from first draft to closure.
package slips

import (
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// Slip is an outward placement instrument, independent of any policy record.
type Slip struct {
	ID               string          `json:"id" msgpack:"id"`
	SlipNumber       string          `json:"slip_number" msgpack:"slip_number"`
	Date             *time.Time      `json:"date,omitempty" msgpack:"date"`
	InsuredName      string          `json:"insured_name" msgpack:"insured_name"`
	Currency         domain.Currency `json:"currency" msgpack:"currency"`
	LimitOfLiability float64         `json:"limit_of_liability" msgpack:"limit_of_liability"`

	Reinsurers domain.Panel `json:"reinsurers" msgpack:"reinsurers"`
	// BrokerReinsurer mirrors the lead panel entry for older consumers. The panel wins.
	BrokerReinsurer string `json:"broker_reinsurer" msgpack:"broker_reinsurer"`

	Status        Status     `json:"status" msgpack:"status"`
	SignedDate    *time.Time `json:"signed_date,omitempty" msgpack:"signed_date"`
	SentDate      *time.Time `json:"sent_date,omitempty" msgpack:"sent_date"`
	BoundDate     *time.Time `json:"bound_date,omitempty" msgpack:"bound_date"`
	ClosedDate    *time.Time `json:"closed_date,omitempty" msgpack:"closed_date"`
	DeclinedDate  *time.Time `json:"declined_date,omitempty" msgpack:"declined_date"`
	DeclineReason string     `json:"decline_reason,omitempty" msgpack:"decline_reason"`

	Deleted   bool      `json:"deleted" msgpack:"deleted"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// SetPanel replaces the panel and keeps BrokerReinsurer in step with its lead.
// Emptying a panel clears it; a legacy value on a slip that never had a panel is kept.
func (s *Slip) SetPanel(p domain.Panel) {
	had := len(s.Reinsurers) > 0
	s.Reinsurers = p
	switch {
	case len(p) > 0:
		s.BrokerReinsurer = p.LeadName()
	case had:
		s.BrokerReinsurer = ""
	}
}

// Clone returns a copy that shares no mutable state with s.
func (s Slip) Clone() Slip {
	out := s
	out.Reinsurers = s.Reinsurers.Clone()
	for _, p := range []**time.Time{&out.Date, &out.SignedDate, &out.SentDate, &out.BoundDate, &out.ClosedDate, &out.DeclinedDate} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return out
}

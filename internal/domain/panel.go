package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Reinsurer is one participant of a reinsurance panel.
type Reinsurer struct {
	ID            string  `json:"id" msgpack:"id"`
	Name          string  `json:"name" msgpack:"name"`
	SharePct      float64 `json:"share_pct" msgpack:"share_pct"`
	CommissionPct float64 `json:"commission_pct" msgpack:"commission_pct"`
}

// ReinsurerPatch carries a partial edit; nil fields are left unchanged.
type ReinsurerPatch struct {
	Name          *string  `json:"name,omitempty"`
	SharePct      *float64 `json:"share_pct,omitempty"`
	CommissionPct *float64 `json:"commission_pct,omitempty"`
}

// Panel is the ordered set of reinsurers on a policy or slip. Entries are addressed by
// their stable ID, never by position. Mutators return a new Panel and leave the
// receiver untouched.
type Panel []Reinsurer

// Clone returns an independent copy.
func (p Panel) Clone() Panel {
	if p == nil {
		return nil
	}
	out := make(Panel, len(p))
	copy(out, p)
	return out
}

// Get looks an entry up by ID.
func (p Panel) Get(id string) (Reinsurer, bool) {
	if i := p.index(id); i >= 0 {
		return p[i], true
	}
	return Reinsurer{}, false
}

// Add appends r, assigning a fresh ID when r has none.
func (p Panel) Add(r Reinsurer) (Panel, Reinsurer, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.ID == "" {
		r.ID = uuid.New().String()
	} else if p.index(r.ID) >= 0 {
		return p, Reinsurer{}, NewValidationError("id", "reinsurer %s already on panel", r.ID)
	}
	out := append(p.Clone(), r)
	return out, r, nil
}

// Update applies patch to the entry with the given ID.
func (p Panel) Update(id string, patch ReinsurerPatch) (Panel, error) {
	i := p.index(id)
	if i < 0 {
		return p, &NotFoundError{Kind: "reinsurer", ID: id}
	}
	out := p.Clone()
	if patch.Name != nil {
		out[i].Name = strings.TrimSpace(*patch.Name)
	}
	if patch.SharePct != nil {
		out[i].SharePct = *patch.SharePct
	}
	if patch.CommissionPct != nil {
		out[i].CommissionPct = *patch.CommissionPct
	}
	return out, nil
}

// Remove drops the entry with the given ID, preserving the order of the rest.
func (p Panel) Remove(id string) (Panel, error) {
	i := p.index(id)
	if i < 0 {
		return p, &NotFoundError{Kind: "reinsurer", ID: id}
	}
	out := make(Panel, 0, len(p)-1)
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...), nil
}

// LeadName returns the first entry's name, or "" for an empty panel.
func (p Panel) LeadName() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].Name
}

func (p Panel) index(id string) int {
	for i := range p {
		if p[i].ID == id {
			return i
		}
	}
	return -1
}

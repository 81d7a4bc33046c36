package policies

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// Installment is one scheduled premium collection.
type Installment struct {
	ID         string     `json:"id" msgpack:"id"`
	DueDate    time.Time  `json:"due_date" msgpack:"due_date"`
	DueAmount  float64    `json:"due_amount" msgpack:"due_amount"`
	PaidDate   *time.Time `json:"paid_date,omitempty" msgpack:"paid_date"`
	PaidAmount float64    `json:"paid_amount" msgpack:"paid_amount"`
}

// Outstanding is the unpaid remainder, never negative.
func (i Installment) Outstanding() float64 {
	if rest := i.DueAmount - i.PaidAmount; rest > 0 {
		return rest
	}
	return 0
}

// Installments is a policy's schedule, addressed by installment ID.
// Mutators return a new slice.
type Installments []Installment

// Clone returns an independent copy.
func (s Installments) Clone() Installments {
	if s == nil {
		return nil
	}
	out := make(Installments, len(s))
	for i, it := range s {
		if it.PaidDate != nil {
			d := *it.PaidDate
			it.PaidDate = &d
		}
		out[i] = it
	}
	return out
}

// Add appends an installment with a fresh ID and keeps the schedule ordered by due date.
func (s Installments) Add(due time.Time, amount float64) (Installments, Installment, error) {
	if due.IsZero() {
		return s, Installment{}, domain.NewValidationError("due_date", "is required")
	}
	if amount < 0 {
		return s, Installment{}, domain.NewValidationError("due_amount", "must not be negative")
	}
	it := Installment{ID: uuid.New().String(), DueDate: due.UTC(), DueAmount: amount}
	out := append(s.Clone(), it)
	sort.SliceStable(out, func(a, b int) bool { return out[a].DueDate.Before(out[b].DueDate) })
	return out, it, nil
}

// MarkPaid records a payment against id.
func (s Installments) MarkPaid(id string, paidAt time.Time, amount float64) (Installments, error) {
	i := s.index(id)
	if i < 0 {
		return s, &domain.NotFoundError{Kind: "installment", ID: id}
	}
	if paidAt.IsZero() {
		return s, domain.NewValidationError("paid_date", "is required")
	}
	if amount < 0 {
		return s, domain.NewValidationError("paid_amount", "must not be negative")
	}
	out := s.Clone()
	d := paidAt.UTC()
	out[i].PaidDate = &d
	out[i].PaidAmount = amount
	return out, nil
}

// Remove drops installment id.
func (s Installments) Remove(id string) (Installments, error) {
	i := s.index(id)
	if i < 0 {
		return s, &domain.NotFoundError{Kind: "installment", ID: id}
	}
	out := make(Installments, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...), nil
}

// Outstanding sums what is still owed across the schedule.
func (s Installments) Outstanding() float64 {
	total := 0.0
	for _, it := range s {
		total += it.Outstanding()
	}
	return total
}

// Overdue returns installments due strictly before asOf with money still owed.
func (s Installments) Overdue(asOf time.Time) Installments {
	var out Installments
	for _, it := range s {
		if it.DueDate.Before(asOf) && it.Outstanding() > 0 {
			out = append(out, it)
		}
	}
	return out
}

func (s Installments) index(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

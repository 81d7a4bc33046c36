package slips

import "context"

// ListFilter narrows ListSlips.
type ListFilter struct {
	Status         Status
	IncludeDeleted bool
}

// Matches reports whether s passes the filter.
func (f ListFilter) Matches(s Slip) bool {
	if s.Deleted && !f.IncludeDeleted {
		return false
	}
	return f.Status == "" || s.Status == f.Status
}

// Repository persists slips with the same soft-delete semantics as policies.
type Repository interface {
	GetSlip(ctx context.Context, id string) (Slip, error)
	SaveSlip(ctx context.Context, s Slip) (Slip, error)
	DeleteSlip(ctx context.Context, id string) error
	RestoreSlip(ctx context.Context, id string) error
	ListSlips(ctx context.Context, filter ListFilter) ([]Slip, error)
}

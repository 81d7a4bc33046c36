package policies

import (
	"context"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// ListFilter narrows ListPolicies. Zero values match everything except deleted rows.
type ListFilter struct {
	Status         Status
	Channel        domain.Channel
	IncludeDeleted bool
}

// Matches reports whether p passes the filter.
func (f ListFilter) Matches(p Policy) bool {
	if p.Deleted && !f.IncludeDeleted {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Channel != "" && p.Channel != f.Channel {
		return false
	}
	return true
}

// Repository persists policies. Implementations wrap failures in domain.PersistenceError
// and report unknown IDs as domain.NotFoundError.
type Repository interface {
	GetPolicy(ctx context.Context, id string) (Policy, error)
	SavePolicy(ctx context.Context, p Policy) (Policy, error)
	DeletePolicy(ctx context.Context, id string) error
	RestorePolicy(ctx context.Context, id string) error
	ListPolicies(ctx context.Context, filter ListFilter) ([]Policy, error)
}

package policies

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// MemoryRepository keeps policies in a map. Used by tests and by the service when no
// database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	policies map[string]Policy
	// FailNext, when set, makes the next write fail with the given error.
	FailNext error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{policies: make(map[string]Policy)}
}

func (r *MemoryRepository) GetPolicy(ctx context.Context, id string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok {
		return Policy{}, &domain.NotFoundError{Kind: "policy", ID: id}
	}
	return p.Clone(), nil
}

func (r *MemoryRepository) SavePolicy(ctx context.Context, p Policy) (Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure("save policy", p.ID); err != nil {
		return Policy{}, err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.policies[p.ID] = p.Clone()
	return p, nil
}

func (r *MemoryRepository) DeletePolicy(ctx context.Context, id string) error {
	return r.setDeleted(id, true)
}

func (r *MemoryRepository) RestorePolicy(ctx context.Context, id string) error {
	return r.setDeleted(id, false)
}

func (r *MemoryRepository) setDeleted(id string, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure("set deleted", id); err != nil {
		return err
	}
	p, ok := r.policies[id]
	if !ok {
		return &domain.NotFoundError{Kind: "policy", ID: id}
	}
	p.Deleted = deleted
	p.UpdatedAt = time.Now().UTC()
	r.policies[id] = p
	return nil
}

func (r *MemoryRepository) ListPolicies(ctx context.Context, filter ListFilter) ([]Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Policy
	for _, p := range r.policies {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) takeFailure(op, id string) error {
	if r.FailNext == nil {
		return nil
	}
	err := r.FailNext
	r.FailNext = nil
	return &domain.PersistenceError{Op: op, ID: id, Err: err}
}

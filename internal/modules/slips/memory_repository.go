package slips

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
)

// MemoryRepository keeps slips in a map.
type MemoryRepository struct {
	mu    sync.RWMutex
	slips map[string]Slip
	// FailNext, when set, makes the next write fail with the given error.
	FailNext error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{slips: make(map[string]Slip)}
}

func (r *MemoryRepository) GetSlip(ctx context.Context, id string) (Slip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slips[id]
	if !ok {
		return Slip{}, &domain.NotFoundError{Kind: "slip", ID: id}
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) SaveSlip(ctx context.Context, s Slip) (Slip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure("save slip", s.ID); err != nil {
		return Slip{}, err
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	r.slips[s.ID] = s.Clone()
	return s, nil
}

func (r *MemoryRepository) DeleteSlip(ctx context.Context, id string) error {
	return r.setDeleted(id, true)
}

func (r *MemoryRepository) RestoreSlip(ctx context.Context, id string) error {
	return r.setDeleted(id, false)
}

func (r *MemoryRepository) setDeleted(id string, deleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure("set deleted", id); err != nil {
		return err
	}
	s, ok := r.slips[id]
	if !ok {
		return &domain.NotFoundError{Kind: "slip", ID: id}
	}
	s.Deleted = deleted
	r.slips[id] = s
	return nil
}

func (r *MemoryRepository) ListSlips(ctx context.Context, filter ListFilter) ([]Slip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Slip
	for _, s := range r.slips {
		if filter.Matches(s) {
			out = append(out, s.Clone())
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

// Package optimistic keeps an in-memory working set of records that reflects edits
// before they are persisted and reverts them when persistence fails.
package optimistic

import (
	"context"
	"sync"
)

// List is a keyed, ordered working set. Safe for concurrent use.
type List[T any] struct {
	mu       sync.RWMutex
	key      func(T) string
	items    []T
	index    map[string]int
	versions map[string]uint64
	pending  map[string]int
	loaded   bool

	// known holds the last value confirmed by the store for each key.
	known        map[string]T
	knownVersion map[string]uint64
}

// New creates an empty list keyed by key.
func New[T any](key func(T) string) *List[T] {
	return &List[T]{
		key:          key,
		index:        make(map[string]int),
		versions:     make(map[string]uint64),
		pending:      make(map[string]int),
		known:        make(map[string]T),
		knownVersion: make(map[string]uint64),
	}
}

// Loaded reports whether Replace has been called at least once.
func (l *List[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Replace swaps the whole working set, e.g. after a fresh load from the repository.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = make([]T, 0, len(items))
	l.index = make(map[string]int, len(items))
	l.known = make(map[string]T, len(items))
	l.knownVersion = make(map[string]uint64, len(items))
	for _, it := range items {
		l.upsertLocked(it)
		l.remember(it, l.versions[l.key(it)])
	}
	l.loaded = true
}

// Invalidate forgets the working set so the next reader reloads it.
func (l *List[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.index = make(map[string]int)
	l.known = make(map[string]T)
	l.knownVersion = make(map[string]uint64)
	l.loaded = false
}

// Items returns a copy of the working set in insertion order.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Get returns the working copy for id.
func (l *List[T]) Get(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i, ok := l.index[id]; ok {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Apply shows next in the working set immediately, then calls persist. On success the
// persisted value replaces next; on failure the last persisted value is restored
// (or the entry removed if it was never persisted). A later Apply for the same key
// wins over an earlier one that finishes after it. Unsaved values of overlapping
// Applies are never used as the rollback target.
func (l *List[T]) Apply(ctx context.Context, next T, persist func(context.Context, T) (T, error)) (T, error) {
	id := l.key(next)

	l.mu.Lock()
	l.versions[id]++
	l.pending[id]++
	version := l.versions[id]
	l.upsertLocked(next)
	l.mu.Unlock()

	saved, err := persist(ctx, next)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending[id]--; l.pending[id] == 0 {
		delete(l.pending, id)
	}
	if err == nil {
		l.remember(saved, version)
	}
	if l.versions[id] != version {
		// Superseded. Shown only when every later Apply has finished without saving.
		if err == nil && l.pending[id] == 0 && l.knownVersion[id] == version {
			l.upsertLocked(saved)
		}
		return saved, err
	}
	if err != nil {
		if good, ok := l.known[id]; ok {
			l.upsertLocked(good)
		} else {
			l.removeLocked(id)
		}
		var zero T
		return zero, err
	}
	l.upsertLocked(saved)
	return saved, nil
}

// remember records item as persisted unless a later Apply already saved the key.
func (l *List[T]) remember(item T, version uint64) {
	id := l.key(item)
	if v, ok := l.knownVersion[id]; ok && v > version {
		return
	}
	l.known[id] = item
	l.knownVersion[id] = version
}

func (l *List[T]) upsertLocked(item T) {
	id := l.key(item)
	if i, ok := l.index[id]; ok {
		l.items[i] = item
		return
	}
	l.index[id] = len(l.items)
	l.items = append(l.items, item)
}

func (l *List[T]) removeLocked(id string) {
	i, ok := l.index[id]
	if !ok {
		return
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.items); j++ {
		l.index[l.key(l.items[j])] = j
	}
}

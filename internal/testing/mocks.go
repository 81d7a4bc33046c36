package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockRateLookup is a mock implementation of domain.RateLookup.
// Rates are keyed "FROM:TO"; the reverse pair is derived automatically.
type MockRateLookup struct {
	rates map[string]float64
	err   error
	calls int
	mu    sync.RWMutex
}

// NewMockRateLookup creates a new mock rate lookup
func NewMockRateLookup() *MockRateLookup {
	return &MockRateLookup{
		rates: make(map[string]float64),
	}
}

// SetRate sets units of `to` per one unit of `from`
func (m *MockRateLookup) SetRate(from, to string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[pairKey(from, to)] = rate
}

// SetError sets the error to return
func (m *MockRateLookup) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many lookups were made
func (m *MockRateLookup) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetRate returns the configured rate
func (m *MockRateLookup) GetRate(ctx context.Context, from, to string) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return 0, m.err
	}
	if strings.EqualFold(from, to) {
		return 1, nil
	}
	if rate, ok := m.rates[pairKey(from, to)]; ok {
		return rate, nil
	}
	if rate, ok := m.rates[pairKey(to, from)]; ok && rate > 0 {
		return 1 / rate, nil
	}
	return 0, fmt.Errorf("no rate for %s/%s", from, to)
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + ":" + strings.ToUpper(to)
}

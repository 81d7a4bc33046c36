package currency

import (
	"sort"
	"strings"
	"sync"
)

// USDRateProvider returns the approximate USD value of one unit of a currency.
// ok is false when the provider has no opinion on the currency.
type USDRateProvider interface {
	USDPerUnit(code string) (rate float64, ok bool)
}

// FixedUSDTable is a coarse, hard-coded approximation for portfolio views.
// Never use it for contract accounting.
type FixedUSDTable map[string]float64

// DefaultUSDTable holds the fallback rates.
var DefaultUSDTable = FixedUSDTable{
	"USD": 1,
	"UZS": 1.0 / 12800,
	"EUR": 1.08,
	"GBP": 1.27,
	"CHF": 1.12,
	"RUB": 0.011,
	"KZT": 1.0 / 450,
	"CNY": 0.14,
	"JPY": 0.0067,
	"TRY": 0.031,
	"AED": 0.27,
}

// USDPerUnit implements USDRateProvider.
func (t FixedUSDTable) USDPerUnit(code string) (float64, bool) {
	rate, ok := t[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok && rate > 0
}

// Codes returns the table's currencies sorted alphabetically.
func (t FixedUSDTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// SnapshotProvider serves USD rates captured before an aggregation so the
// aggregation itself performs no I/O. Safe for concurrent use.
type SnapshotProvider struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewSnapshotProvider creates an empty snapshot.
func NewSnapshotProvider() *SnapshotProvider {
	return &SnapshotProvider{rates: make(map[string]float64)}
}

// Set records a rate; non-positive rates are ignored.
func (s *SnapshotProvider) Set(code string, usdPerUnit float64) {
	if usdPerUnit <= 0 {
		return
	}
	s.mu.Lock()
	s.rates[strings.ToUpper(strings.TrimSpace(code))] = usdPerUnit
	s.mu.Unlock()
}

// Len returns the number of captured rates.
func (s *SnapshotProvider) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rates)
}

// USDPerUnit implements USDRateProvider.
func (s *SnapshotProvider) USDPerUnit(code string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}

// ChainProvider asks each provider in order and returns the first answer.
type ChainProvider []USDRateProvider

// USDPerUnit implements USDRateProvider.
func (c ChainProvider) USDPerUnit(code string) (float64, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if rate, ok := p.USDPerUnit(code); ok {
			return rate, true
		}
	}
	return 0, false
}

// ToUSD converts amount into approximate USD. Currencies the provider does not know
// pass through unchanged (1:1).
func ToUSD(p USDRateProvider, amount float64, code string) float64 {
	if p == nil {
		return amount
	}
	if rate, ok := p.USDPerUnit(code); ok {
		return amount * rate
	}
	return amount
}

package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
)

// RateTarget is a record whose amounts are expressed at a single exchange rate.
type RateTarget interface {
	WrittenCurrency() domain.Currency
	CurrentRate() float64
	ApplyRate(rate float64)
}

// RateService resolves national exchange rates and USD snapshots.
type RateService struct {
	lookup   domain.RateLookup
	cache    *clientdata.Repository
	national domain.Currency
	events   *events.Manager
	log      zerolog.Logger
}

// NewRateService creates a rate service. cache and eventManager are optional.
func NewRateService(
	lookup domain.RateLookup,
	cache *clientdata.Repository,
	national domain.Currency,
	eventManager *events.Manager,
	log zerolog.Logger,
) *RateService {
	return &RateService{
		lookup:   lookup,
		cache:    cache,
		national: national,
		events:   eventManager,
		log:      log.With().Str("service", "exchange_rate").Logger(),
	}
}

// NationalCurrency returns the reporting currency.
func (s *RateService) NationalCurrency() domain.Currency {
	return s.national
}

// GetLatestExchangeRate returns national units per one unit of code.
// Failures are reported as RateLookupError.
func (s *RateService) GetLatestExchangeRate(ctx context.Context, code string) (float64, error) {
	cur := domain.NormalizeCurrency(code)
	if cur == s.national {
		return 1, nil
	}
	if s.lookup == nil {
		return 0, &domain.RateLookupError{Currency: string(cur), Err: fmt.Errorf("no rate provider configured")}
	}

	rate, err := s.lookup.GetRate(ctx, string(cur), string(s.national))
	if err != nil {
		return 0, &domain.RateLookupError{Currency: string(cur), Err: err}
	}
	if rate <= 0 {
		return 0, &domain.RateLookupError{Currency: string(cur), Err: fmt.Errorf("provider returned non-positive rate %v", rate)}
	}
	return rate, nil
}

// RefreshPolicyRate looks up the latest rate for target's currency and applies it.
// On failure the previously entered rate is left untouched and the error is returned
// for display only.
func (s *RateService) RefreshPolicyRate(ctx context.Context, target RateTarget) (float64, error) {
	previous := target.CurrentRate()
	rate, err := s.GetLatestExchangeRate(ctx, string(target.WrittenCurrency()))
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("currency", string(target.WrittenCurrency())).
			Float64("kept_rate", previous).
			Msg("Rate lookup failed, keeping previous rate")
		return previous, err
	}

	target.ApplyRate(rate)
	return rate, nil
}

// SnapshotUSD captures USD rates for currencies before an aggregation. Live lookups
// are preferred; cached values (even stale) fill gaps. Currencies with neither are
// left to the caller's fallback provider.
func (s *RateService) SnapshotUSD(ctx context.Context, currencies []string) (*SnapshotProvider, error) {
	snap := NewSnapshotProvider()
	snap.Set("USD", 1)

	for _, code := range currencies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || code == "USD" {
			continue
		}

		if s.lookup != nil {
			perUSD, err := s.lookup.GetRate(ctx, "USD", code)
			if err == nil && perUSD > 0 {
				usdPerUnit := 1 / perUSD
				snap.Set(code, usdPerUnit)
				s.storeUSD(ctx, code, usdPerUnit)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Debug().Err(err).Str("currency", code).Msg("Live USD rate unavailable")
		}

		if cached, ok := s.cachedUSD(ctx, code); ok {
			snap.Set(code, cached)
		}
	}

	return snap, nil
}

// SyncUSDRates refreshes the cached USD rates for currencies. It fails only when
// every lookup failed.
func (s *RateService) SyncUSDRates(ctx context.Context, currencies []string) error {
	if s.lookup == nil {
		return fmt.Errorf("no rate provider configured")
	}

	var synced, failed int
	for _, code := range currencies {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || code == "USD" {
			continue
		}
		perUSD, err := s.lookup.GetRate(ctx, "USD", code)
		if err != nil || perUSD <= 0 {
			failed++
			s.log.Warn().Err(err).Str("currency", code).Msg("Failed to sync USD rate")
			continue
		}
		s.storeUSD(ctx, code, 1/perUSD)
		synced++
		s.events.EmitTyped("currency", &events.ExchangeRateUpdatedData{Currency: code, Rate: 1 / perUSD, Source: "usd_sync"})
	}

	s.log.Info().Int("synced", synced).Int("failed", failed).Msg("USD rate sync finished")
	if synced == 0 && failed > 0 {
		return fmt.Errorf("all %d USD rate lookups failed", failed)
	}
	return nil
}

type cachedUSDRate struct {
	USDPerUnit float64 `json:"usd_per_unit"`
}

func (s *RateService) storeUSD(ctx context.Context, code string, usdPerUnit float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(ctx, clientdata.TableUSDRates, code, cachedUSDRate{USDPerUnit: usdPerUnit}, clientdata.TTLUSDRate); err != nil {
		s.log.Warn().Err(err).Str("currency", code).Msg("Failed to cache USD rate")
	}
}

func (s *RateService) cachedUSD(ctx context.Context, code string) (float64, bool) {
	if s.cache == nil {
		return 0, false
	}
	raw, err := s.cache.Get(ctx, clientdata.TableUSDRates, code)
	if err != nil || raw == nil {
		return 0, false
	}
	var cached cachedUSDRate
	if err := json.Unmarshal(raw, &cached); err != nil || cached.USDPerUnit <= 0 {
		return 0, false
	}
	return cached.USDPerUnit, true
}

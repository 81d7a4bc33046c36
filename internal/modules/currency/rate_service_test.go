package currency

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	rates map[string]float64
	err   error
	calls int
}

func (f *fakeLookup) GetRate(ctx context.Context, from, to string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	rate, ok := f.rates[from+":"+to]
	if !ok {
		return 0, errors.New("no such pair")
	}
	return rate, nil
}

type rateHolder struct {
	currency domain.Currency
	rate     float64
	applied  []float64
}

func (h *rateHolder) WrittenCurrency() domain.Currency { return h.currency }
func (h *rateHolder) CurrentRate() float64             { return h.rate }
func (h *rateHolder) ApplyRate(rate float64) {
	h.rate = rate
	h.applied = append(h.applied, rate)
}

func newCache(t *testing.T) *clientdata.Repository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE exchangerate (pair TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE usd_rates (currency TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func TestGetLatestExchangeRate(t *testing.T) {
	lookup := &fakeLookup{rates: map[string]float64{"EUR:UZS": 13800}}
	svc := NewRateService(lookup, nil, domain.CurrencyUZS, nil, zerolog.Nop())
	ctx := context.Background()

	rate, err := svc.GetLatestExchangeRate(ctx, "eur")
	require.NoError(t, err)
	assert.Equal(t, 13800.0, rate)

	rate, err = svc.GetLatestExchangeRate(ctx, "UZS")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
	assert.Equal(t, 1, lookup.calls, "national currency needs no lookup")
}

func TestGetLatestExchangeRate_FailureIsRateLookupError(t *testing.T) {
	svc := NewRateService(&fakeLookup{err: errors.New("timeout")}, nil, domain.CurrencyUZS, nil, zerolog.Nop())

	_, err := svc.GetLatestExchangeRate(context.Background(), "USD")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLookup)

	var rle *domain.RateLookupError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "USD", rle.Currency)
}

func TestRefreshPolicyRate_KeepsPreviousRateOnFailure(t *testing.T) {
	svc := NewRateService(&fakeLookup{err: errors.New("down")}, nil, domain.CurrencyUZS, nil, zerolog.Nop())
	holder := &rateHolder{currency: "USD", rate: 12500}

	rate, err := svc.RefreshPolicyRate(context.Background(), holder)
	assert.ErrorIs(t, err, domain.ErrRateLookup)
	assert.Equal(t, 12500.0, rate)
	assert.Equal(t, 12500.0, holder.rate)
	assert.Empty(t, holder.applied)
}

func TestRefreshPolicyRate_AppliesNewRate(t *testing.T) {
	svc := NewRateService(&fakeLookup{rates: map[string]float64{"USD:UZS": 12900}}, nil, domain.CurrencyUZS, nil, zerolog.Nop())
	holder := &rateHolder{currency: "USD", rate: 12500}

	rate, err := svc.RefreshPolicyRate(context.Background(), holder)
	require.NoError(t, err)
	assert.Equal(t, 12900.0, rate)
	assert.Equal(t, []float64{12900}, holder.applied)
}

func TestSnapshotUSD_LiveThenCache(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	require.NoError(t, cache.Store(ctx, clientdata.TableUSDRates, "GBP", cachedUSDRate{USDPerUnit: 1.25}, -time.Hour))

	lookup := &fakeLookup{rates: map[string]float64{"USD:EUR": 0.8}}
	svc := NewRateService(lookup, cache, domain.CurrencyUZS, nil, zerolog.Nop())

	snap, err := svc.SnapshotUSD(ctx, []string{"eur", "GBP", "XYZ", "USD", ""})
	require.NoError(t, err)

	eur, ok := snap.USDPerUnit("EUR")
	require.True(t, ok)
	assert.InDelta(t, 1.25, eur, 1e-9)

	gbp, ok := snap.USDPerUnit("GBP")
	require.True(t, ok, "stale cache fills gaps")
	assert.Equal(t, 1.25, gbp)

	_, ok = snap.USDPerUnit("XYZ")
	assert.False(t, ok)

	usd, ok := snap.USDPerUnit("USD")
	require.True(t, ok)
	assert.Equal(t, 1.0, usd)

	// The live EUR rate was written through to the cache.
	raw, err := cache.GetIfFresh(ctx, clientdata.TableUSDRates, "EUR")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestSnapshotUSD_CancelledContextDiscardsResult(t *testing.T) {
	svc := NewRateService(&fakeLookup{rates: map[string]float64{"USD:EUR": 0.9}}, nil, domain.CurrencyUZS, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := svc.SnapshotUSD(ctx, []string{"EUR"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snap)
}

func TestSyncUSDRates(t *testing.T) {
	cache := newCache(t)
	svc := NewRateService(&fakeLookup{rates: map[string]float64{"USD:EUR": 0.5}}, cache, domain.CurrencyUZS, nil, zerolog.Nop())

	require.NoError(t, svc.SyncUSDRates(context.Background(), []string{"EUR", "USD", "ZZZ"}))

	raw, err := cache.Get(context.Background(), clientdata.TableUSDRates, "EUR")
	require.NoError(t, err)
	assert.JSONEq(t, `{"usd_per_unit":2}`, string(raw))

	failing := NewRateService(&fakeLookup{err: errors.New("down")}, cache, domain.CurrencyUZS, nil, zerolog.Nop())
	assert.Error(t, failing.SyncUSDRates(context.Background(), []string{"EUR"}))
}

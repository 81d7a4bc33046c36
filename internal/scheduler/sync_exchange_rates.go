package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// USDRateSyncer refreshes cached USD rates.
type USDRateSyncer interface {
	SyncUSDRates(ctx context.Context, currencies []string) error
}

// SyncExchangeRatesJob keeps the USD rate cache warm for the configured currencies so
// risk aggregation can fall back to recent rates when the provider is down.
type SyncExchangeRatesJob struct {
	rates      USDRateSyncer
	currencies []string
	timeout    time.Duration
	log        zerolog.Logger
}

// NewSyncExchangeRatesJob creates a new SyncExchangeRatesJob
func NewSyncExchangeRatesJob(rates USDRateSyncer, currencies []string, log zerolog.Logger) *SyncExchangeRatesJob {
	return &SyncExchangeRatesJob{
		rates:      rates,
		currencies: currencies,
		timeout:    2 * time.Minute,
		log:        log.With().Str("job", "sync_exchange_rates").Logger(),
	}
}

// Name returns the job name
func (j *SyncExchangeRatesJob) Name() string {
	return "sync_exchange_rates"
}

// Run executes the sync. Partial success is not an error.
func (j *SyncExchangeRatesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.rates.SyncUSDRates(ctx, j.currencies); err != nil {
		return err
	}
	j.log.Debug().Strs("currencies", j.currencies).Msg("Exchange rates synced")
	return nil
}

package risk

import (
	"context"
	"fmt"

	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	"github.com/mosaic-erp/reinsurance/internal/modules/settings"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
)

// PolicySource lists the contracts to aggregate.
type PolicySource interface {
	List(ctx context.Context, filter policies.ListFilter) ([]policies.Policy, error)
}

// USDSnapshotter loads USD rates for a set of currencies ahead of aggregation.
type USDSnapshotter interface {
	SnapshotUSD(ctx context.Context, currencies []string) (*currency.SnapshotProvider, error)
}

// SettingsReader supplies runtime threshold overrides.
type SettingsReader interface {
	GetFloat(ctx context.Context, key string) (float64, error)
	GetInt(ctx context.Context, key string) (int, error)
}

// Service builds risk reports from the live portfolio.
type Service struct {
	policies PolicySource
	rates    USDSnapshotter
	settings SettingsReader
	origin   OriginConfig
	defaults Thresholds
	topN     int
	log      zerolog.Logger
}

// NewService creates a risk service. rates and settingsReader may be nil, in which
// case the fixed USD table and the given defaults are used.
func NewService(
	source PolicySource,
	rates USDSnapshotter,
	settingsReader SettingsReader,
	origin OriginConfig,
	defaults Thresholds,
	topN int,
	log zerolog.Logger,
) *Service {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Service{
		policies: source,
		rates:    rates,
		settings: settingsReader,
		origin:   origin,
		defaults: defaults,
		topN:     topN,
		log:      log.With().Str("service", "risk").Logger(),
	}
}

// Rows returns the current portfolio projection.
func (s *Service) Rows(ctx context.Context) ([]PortfolioRow, error) {
	list, err := s.policies.List(ctx, policies.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return s.origin.FromPolicies(list), nil
}

// Thresholds returns the effective concentration limits.
func (s *Service) Thresholds(ctx context.Context) Thresholds {
	t := s.defaults
	if s.settings == nil {
		return t
	}
	t.Territory = s.setting(ctx, settings.KeyRiskThresholdTerritory, t.Territory)
	t.Class = s.setting(ctx, settings.KeyRiskThresholdClass, t.Class)
	t.Cedant = s.setting(ctx, settings.KeyRiskThresholdCedant, t.Cedant)
	return t
}

func (s *Service) setting(ctx context.Context, key string, fallback float64) float64 {
	v, err := s.settings.GetFloat(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to read threshold override")
		return fallback
	}
	return v
}

// TopN returns the effective size of the top-risk view.
func (s *Service) TopN(ctx context.Context) int {
	if s.settings == nil {
		return s.topN
	}
	n, err := s.settings.GetInt(ctx, settings.KeyRiskTopN)
	if err != nil || n <= 0 {
		return s.topN
	}
	return n
}

// aggregator snapshots USD rates for rows and returns an aggregator over them.
// A cancelled context discards the partial snapshot.
func (s *Service) aggregator(ctx context.Context, rows []PortfolioRow) (*Aggregator, error) {
	var provider currency.USDRateProvider = currency.DefaultUSDTable
	if s.rates != nil {
		snap, err := s.rates.SnapshotUSD(ctx, Currencies(rows))
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot USD rates: %w", err)
		}
		provider = currency.ChainProvider{snap, currency.DefaultUSDTable}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewAggregator(provider, s.Thresholds(ctx)), nil
}

// Report aggregates the whole portfolio. topN <= 0 uses the configured size.
func (s *Service) Report(ctx context.Context, topN int) (Report, error) {
	defer utils.OperationTimer("risk_report", s.log)()

	rows, err := s.Rows(ctx)
	if err != nil {
		return Report{}, err
	}
	agg, err := s.aggregator(ctx, rows)
	if err != nil {
		return Report{}, err
	}
	if topN <= 0 {
		topN = s.TopN(ctx)
	}

	rep := agg.Report(rows, topN)
	if len(rep.Alerts) > 0 {
		s.log.Info().Int("alerts", len(rep.Alerts)).Msg("Concentration thresholds reached")
	}
	return rep, nil
}

// TopRisks returns the n largest in-force exposures. n <= 0 uses the configured size.
func (s *Service) TopRisks(ctx context.Context, n int) ([]RankedRisk, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	agg, err := s.aggregator(ctx, rows)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.TopN(ctx)
	}
	return agg.TopRisks(rows, n), nil
}

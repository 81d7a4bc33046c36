package di

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/mosaic-erp/reinsurance/internal/clients/exchangerate"
	"github.com/mosaic-erp/reinsurance/internal/config"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	"github.com/mosaic-erp/reinsurance/internal/modules/risk"
	"github.com/mosaic-erp/reinsurance/internal/modules/settings"
	"github.com/mosaic-erp/reinsurance/internal/modules/slips"
	"github.com/mosaic-erp/reinsurance/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices builds repositories, clients and services on top of the databases
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	national := domain.NormalizeCurrency(cfg.NationalCurrency)

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	// Clients
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.ExchangeRateClient = exchangerate.NewClient(cfg.ExchangeRate.APIURL, container.ClientDataRepo, log)

	// Repositories
	container.PolicyRepo = policies.NewSQLiteRepository(container.PortfolioDB.Conn(), log)
	container.SlipRepo = slips.NewSQLiteRepository(container.PortfolioDB.Conn(), log)
	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)

	// Settings: environment values become the defaults behind stored overrides
	container.SettingsService = settings.NewService(container.SettingsRepo, container.EventManager, log)
	container.SettingsService.SetDefault(settings.KeyRiskThresholdTerritory, cfg.Risk.TerritoryThreshold)
	container.SettingsService.SetDefault(settings.KeyRiskThresholdClass, cfg.Risk.ClassThreshold)
	container.SettingsService.SetDefault(settings.KeyRiskThresholdCedant, cfg.Risk.CedantThreshold)
	container.SettingsService.SetDefault(settings.KeyRiskTopN, float64(cfg.Risk.TopN))

	// Currency
	container.RateService = currency.NewRateService(
		container.ExchangeRateClient,
		container.ClientDataRepo,
		national,
		container.EventManager,
		log,
	)

	// Records
	container.PolicyService = policies.NewService(
		container.PolicyRepo,
		policies.NewStatusMachine(),
		container.RateService,
		container.EventManager,
		national,
		cfg.StrictPanelValidation,
		log,
	)
	container.SlipService = slips.NewService(container.SlipRepo, slips.NewMachine(), container.EventManager, log)

	// Risk
	container.RiskService = risk.NewService(
		container.PolicyService,
		container.RateService,
		container.SettingsService,
		risk.OriginConfig{
			HomeTerritory: cfg.HomeTerritory,
			HomeCode:      cfg.HomeTerritoryCode,
			National:      national,
		},
		risk.Thresholds{
			Territory: cfg.Risk.TerritoryThreshold,
			Class:     cfg.Risk.ClassThreshold,
			Cedant:    cfg.Risk.CedantThreshold,
		},
		cfg.Risk.TopN,
		log,
	)

	// Backups
	var store reliability.ObjectStore
	if cfg.Backup.RemoteEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s3Client, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		store = s3Client
	}
	container.BackupService = reliability.NewBackupService(
		container.Databases(),
		cfg.DataDir,
		store,
		cfg.Backup.RetentionDays,
		container.EventManager,
		log,
	)

	log.Info().
		Str("national_currency", string(national)).
		Bool("strict_panel", cfg.StrictPanelValidation).
		Bool("remote_backups", store != nil).
		Msg("Services initialized")
	return nil
}

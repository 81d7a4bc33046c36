// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/mosaic-erp/reinsurance/internal/clients/exchangerate"
	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	"github.com/mosaic-erp/reinsurance/internal/modules/risk"
	"github.com/mosaic-erp/reinsurance/internal/modules/settings"
	"github.com/mosaic-erp/reinsurance/internal/modules/slips"
	"github.com/mosaic-erp/reinsurance/internal/reliability"
	"github.com/mosaic-erp/reinsurance/internal/scheduler"
)

// Container holds all dependencies for the application.
//
// It is the single source of truth for service instances: Wire builds it once and
// the server reads handlers' collaborators from it.
//
// Databases:
//   - portfolio.db: policies and slips (msgpack bodies plus indexed columns)
//   - config.db: runtime settings overrides
//   - cache.db: exchange-rate responses with expiry
type Container struct {
	// Databases
	PortfolioDB *database.DB
	ConfigDB    *database.DB
	CacheDB     *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Clients
	ClientDataRepo     *clientdata.Repository
	ExchangeRateClient *exchangerate.Client

	// Repositories
	PolicyRepo   policies.Repository
	SlipRepo     slips.Repository
	SettingsRepo *settings.Repository

	// Services
	RateService     *currency.RateService
	SettingsService *settings.Service
	PolicyService   *policies.Service
	SlipService     *slips.Service
	RiskService     *risk.Service
	BackupService   *reliability.BackupService

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns the record databases by name, for backup and maintenance.
// The cache database is excluded: it can be rebuilt from the rate API.
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		database.NamePortfolio: c.PortfolioDB,
		database.NameConfig:    c.ConfigDB,
	}
}

// Close closes every open database.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.PortfolioDB, c.ConfigDB, c.CacheDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}

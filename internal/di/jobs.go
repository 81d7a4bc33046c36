package di

import (
	"fmt"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/clientdata"
	"github.com/mosaic-erp/reinsurance/internal/config"
	"github.com/mosaic-erp/reinsurance/internal/reliability"
	"github.com/mosaic-erp/reinsurance/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed schedules (seconds field first)
const (
	cleanupSchedule     = "0 0 3 * * *"
	maintenanceSchedule = "0 0 2 * * *"
)

// RegisterJobs creates the scheduler and registers background jobs. The scheduler is
// not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.ExchangeRate.SyncSchedule, scheduler.NewSyncExchangeRatesJob(container.RateService, cfg.ExchangeRate.Currencies, log)},
		{cleanupSchedule, clientdata.NewCleanupJob(container.ClientDataRepo, log)},
		{maintenanceSchedule, reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log)},
	}
	if cfg.Backup.Enabled {
		jobs = append(jobs, struct {
			schedule string
			job      scheduler.Job
		}{cfg.Backup.Schedule, reliability.NewBackupJob(container.BackupService, 10*time.Minute, log)})
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			return fmt.Errorf("failed to register %s: %w", j.job.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}

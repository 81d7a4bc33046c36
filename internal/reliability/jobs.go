package reliability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob runs CreateBackup on a schedule.
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a backup job bounded by timeout.
func NewBackupJob(service *BackupService, timeout time.Duration, log zerolog.Logger) *BackupJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BackupJob{
		service: service,
		timeout: timeout,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.CreateBackup(ctx)
	return err
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Disk space levels, in bytes.
const (
	diskCriticalBytes = 500 * 1000 * 1000
	diskLowBytes      = 5 * 1000 * 1000 * 1000
)

// MaintenanceJob checks integrity, truncates WAL files and watches free disk space.
type MaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceJob creates the daily maintenance job.
func NewMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the maintenance pass. Integrity failures and critical disk space are
// returned; WAL checkpoint failures are only logged.
func (j *MaintenanceJob) Run() error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			continue
		}
		if err := db.QuickCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
		j.log.Debug().
			Str("database", name).
			Int64("size_bytes", db.SizeBytes()).
			Msg("Database maintained")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Int("databases", len(names)).
		Dur("duration_ms", time.Since(start)).
		Msg("Maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case usage.Free < diskCriticalBytes:
		j.log.Error().Float64("free_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case usage.Free < diskLowBytes:
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")
	}
	return nil
}

package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mosaic-erp/reinsurance/internal/di"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	"github.com/mosaic-erp/reinsurance/internal/modules/slips"
	"github.com/mosaic-erp/reinsurance/internal/scheduler"
	"github.com/mosaic-erp/reinsurance/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles monitoring and operations endpoints
type SystemHandlers struct {
	container   *di.Container
	dataDir     string
	startupTime time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(container *di.Container, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		container:   container,
		dataDir:     dataDir,
		startupTime: time.Now(),
		log:         log.With().Str("component", "system_handlers").Logger(),
	}
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status         string                `json:"status"`
	UptimeSeconds  int64                 `json:"uptime_seconds"`
	CPUPercent     float64               `json:"cpu_percent"`
	RAMPercent     float64               `json:"ram_percent"`
	PoliciesByStat map[string]int        `json:"policies_by_status"`
	SlipsByStatus  map[string]int        `json:"slips_by_status"`
	Databases      []DBInfo              `json:"databases"`
	Jobs           []scheduler.JobStatus `json:"jobs"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// HandleSystemStatus returns record counts, host load, database sizes and job state
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"

	policyCounts := make(map[string]int)
	if list, err := h.container.PolicyService.List(ctx, policies.ListFilter{}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to count policies")
		status = "degraded"
	} else {
		for _, p := range list {
			policyCounts[string(p.Status)]++
		}
	}

	slipCounts := make(map[string]int)
	if list, err := h.container.SlipService.List(ctx, slips.ListFilter{}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to count slips")
		status = "degraded"
	} else {
		for _, s := range list {
			slipCounts[string(s.Status)]++
		}
	}

	cpuPercent, ramPercent := h.getSystemStats()

	var jobs []scheduler.JobStatus
	if h.container.Scheduler != nil {
		jobs = h.container.Scheduler.Jobs()
	}

	utils.WriteData(w, h.log, http.StatusOK, SystemStatusResponse{
		Status:         status,
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:     cpuPercent,
		RAMPercent:     ramPercent,
		PoliciesByStat: policyCounts,
		SlipsByStatus:  slipCounts,
		Databases:      h.databaseInfo(),
		Jobs:           jobs,
	})
}

func (h *SystemHandlers) databaseInfo() []DBInfo {
	dbs := h.container.Databases()
	if h.container.CacheDB != nil {
		dbs[h.container.CacheDB.Name()] = h.container.CacheDB
	}

	out := make([]DBInfo, 0, len(dbs))
	for name, db := range dbs {
		if db == nil {
			continue
		}
		out = append(out, DBInfo{
			Name:   name,
			Path:   db.Path(),
			SizeMB: float64(db.SizeBytes()) / 1024 / 1024,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// getSystemStats calculates CPU and RAM usage percentages.
// The 100ms CPU sample keeps the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// HandleDiskUsage returns sizes of the data and backup directories in MB
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataDirMB := dirSizeMB(h.dataDir)
	backupsMB := dirSizeMB(filepath.Join(h.dataDir, "backups"))

	utils.WriteData(w, h.log, http.StatusOK, map[string]float64{
		"data_dir_mb": dataDirMB,
		"backups_mb":  backupsMB,
	})
}

func dirSizeMB(dirPath string) float64 {
	var total int64
	_ = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return float64(total) / 1024 / 1024
}

// HandleCreateBackup runs a backup now. POST /api/system/backup
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.container.BackupService.CreateBackup(r.Context())
	if err != nil {
		h.container.EventManager.EmitError("reliability", err, map[string]interface{}{"operation": "backup"})
		utils.WriteError(w, h.log, &domain.PersistenceError{Op: "create backup", Err: err})
		return
	}
	utils.WriteData(w, h.log, http.StatusCreated, result)
}

// HandleListBackups lists local and remote archives. GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	local, err := h.container.BackupService.ListBackups()
	if err != nil {
		utils.WriteError(w, h.log, &domain.PersistenceError{Op: "list backups", Err: err})
		return
	}
	remote, err := h.container.BackupService.ListRemoteBackups(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to list remote backups")
	}

	utils.WriteData(w, h.log, http.StatusOK, map[string]interface{}{
		"local":  local,
		"remote": remote,
	})
}

// HandleJobs lists registered background jobs. GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if h.container.Scheduler == nil {
		utils.WriteData(w, h.log, http.StatusOK, []scheduler.JobStatus{})
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, h.container.Scheduler.Jobs())
}

// HandleRunJob triggers a job immediately. POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.container.Scheduler == nil {
		utils.WriteError(w, h.log, &domain.NotFoundError{Kind: "job", ID: name})
		return
	}

	known := false
	for _, j := range h.container.Scheduler.Jobs() {
		if j.Name == name {
			known = true
			break
		}
	}
	if !known {
		utils.WriteError(w, h.log, &domain.NotFoundError{Kind: "job", ID: name})
		return
	}

	if err := h.container.Scheduler.RunNow(name); err != nil {
		utils.WriteJSON(w, h.log, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]interface{}{"kind": "job_failed", "message": err.Error(), "retryable": true},
		})
		return
	}
	utils.WriteData(w, h.log, http.StatusOK, map[string]string{"job": name, "status": "completed"})
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/disk", h.HandleDiskUsage)
		r.Post("/backup", h.HandleCreateBackup)
		r.Get("/backups", h.HandleListBackups)
		r.Get("/jobs", h.HandleJobs)
		r.Post("/jobs/{name}/run", h.HandleRunJob)
	})
}

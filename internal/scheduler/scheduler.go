// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last known outcome of a registered job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Running   bool       `json:"running"`
}

type entry struct {
	id       cron.EntryID
	job      Job
	schedule string
	running  bool
	lastRun  *time.Time
	lastErr  string
	mu       sync.Mutex
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.RWMutex
	entries map[string]*entry
	log     zerolog.Logger
}

// New creates a new scheduler. Schedules use six fields (seconds first).
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[string]*entry),
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 30 2 * * *"       - 02:30 daily
//   - "@every 30s"         - Every 30 seconds
//
// A run that is still in progress when the next tick fires is skipped.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	e := &entry{job: job, schedule: schedule}
	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(e); err != nil && err != errAlreadyRunning {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, job.Name(), err)
	}
	e.id = id
	s.entries[job.Name()] = e

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

var errAlreadyRunning = fmt.Errorf("job already running")

func (s *Scheduler) run(e *entry) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		s.log.Warn().Str("job", e.job.Name()).Msg("Previous run still in progress, skipping")
		return errAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	s.log.Debug().Str("job", e.job.Name()).Msg("Running job")
	err := e.job.Run()
	now := time.Now()

	e.mu.Lock()
	e.running = false
	e.lastRun = &now
	e.lastErr = ""
	if err != nil {
		e.lastErr = err.Error()
	}
	e.mu.Unlock()

	if err == nil {
		s.log.Debug().Str("job", e.job.Name()).Msg("Job completed")
	}
	return err
}

// RunNow executes a registered job immediately (outside schedule)
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.run(e)
}

// Jobs returns the status of every registered job sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.entries))
	for name, e := range s.entries {
		st := JobStatus{Name: name, Schedule: e.schedule}
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			st.NextRun = &next
		}
		e.mu.Lock()
		st.LastRun = e.lastRun
		st.LastError = e.lastErr
		st.Running = e.running
		e.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

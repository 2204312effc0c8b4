// Package scheduler runs the recurring maintenance jobs: nightly snapshot
// extension, cache cleanup, WAL checkpoints, and database backups.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one maintenance task. Run is invoked on the schedule and must be
// safe to call again after a failure.
type Job interface {
	Run() error
	Name() string
}

// JobStats is the observed run history of one registered job, exposed on the
// system endpoints so operators can see whether the nightly jobs are healthy
// without reading logs.
type JobStats struct {
	Schedule   string    `json:"schedule"`
	Runs       int       `json:"runs"`
	Failures   int       `json:"failures"`
	LastRun    time.Time `json:"last_run"`
	LastTookMS int64     `json:"last_took_ms"`
	LastError  string    `json:"last_error,omitempty"`
}

// Scheduler drives the registered jobs off a seconds-resolution cron and
// records per-job run statistics.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu    sync.Mutex
	stats map[string]*JobStats
}

// New creates a new scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		log:   log.With().Str("component", "scheduler").Logger(),
		stats: make(map[string]*JobStats),
	}
}

// AddJob registers a job with a cron schedule (seconds field included, so
// "0 30 2 * * *" is 02:30:00 daily; @hourly and @every forms also work).
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { _ = s.runTracked(job) })
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.stats[job.Name()] = &JobStats{Schedule: schedule}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule. The run still
// counts toward the job's statistics.
func (s *Scheduler) RunNow(job Job) error {
	return s.runTracked(job)
}

func (s *Scheduler) runTracked(job Job) error {
	started := time.Now()
	err := job.Run()
	took := time.Since(started)

	s.mu.Lock()
	st, ok := s.stats[job.Name()]
	if !ok {
		st = &JobStats{}
		s.stats[job.Name()] = st
	}
	st.Runs++
	st.LastRun = started.UTC()
	st.LastTookMS = took.Milliseconds()
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	} else {
		st.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("took_ms", took).
			Msg("Job failed")
		return err
	}

	s.log.Debug().
		Str("job", job.Name()).
		Dur("took_ms", took).
		Msg("Job completed")
	return nil
}

// Stats returns a copy of the per-job run statistics.
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]JobStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

// Start begins dispatching registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.stats)).Msg("Scheduler started")
}

// Stop stops dispatch and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs registered maintenance jobs on their cron schedules. Each
// job holds a per-job mutex acquired with TryLock, so a tick that fires
// while the previous run is still reconciling is skipped instead of piling
// up behind it.
type Scheduler struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	locks  map[string]*sync.Mutex
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewScheduler creates an empty scheduler. Register jobs before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locks:  make(map[string]*sync.Mutex),
		logger: logger.With("component", "cron"),
	}
}

// RegisterJob adds a job. Job names must be unique; the name keys the
// overlap lock and the log lines.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.locks[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}

	s.locks[name] = &sync.Mutex{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Start validates every job's schedule and begins ticking. A single
// invalid expression fails the whole start so misconfigured maintenance
// is caught at boot, not at the first missed tick.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	s.cron = cron.New(cron.WithParser(parser))

	for _, j := range s.jobs {
		job := j
		lock := s.locks[job.Name()]

		_, err := s.cron.AddFunc(job.Schedule(), func() {
			if !lock.TryLock() {
				s.logger.Warn("job still running, skipping tick", "job", job.Name())
				return
			}
			defer lock.Unlock()

			s.logger.Debug("job started", "job", job.Name())
			if err := job.Run(ctx); err != nil {
				s.logger.Error("job failed", "job", job.Name(), "error", err)
				return
			}
			s.logger.Debug("job completed", "job", job.Name())
		})
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels the job context and waits for in-flight runs to finish.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("scheduler stopped")
	}
	return nil
}

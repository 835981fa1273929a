// Package scheduler runs a single recurring job on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Job is the work run on every tick.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	spec   string
	job    Job
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New creates a scheduler evaluating spec (standard five-field cron syntax)
// in loc.
func New(spec string, loc *time.Location, job Job, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		spec:   spec,
		job:    job,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Start validates the schedule and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.job == nil {
		return errors.New("scheduler job is not set")
	}
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return errors.Wrapf(err, "invalid cron spec %q", s.spec)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "next", s.Next())
	return nil
}

func (s *Scheduler) run() {
	started := time.Now()
	s.logger.Info("scheduled job triggered", "spec", s.spec)
	if err := s.job(s.ctx); err != nil {
		s.logger.Error("scheduled job failed", "err", err)
		return
	}
	s.logger.Info("scheduled job finished", "took", time.Since(started))
}

// Next returns the next activation time, or zero when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

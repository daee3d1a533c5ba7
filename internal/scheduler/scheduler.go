// Package scheduler runs the periodic back-office jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

// Job is one unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	log     *zap.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	// running guards against a slow run overlapping the next tick.
	running sync.Mutex
}

// New registers jobs to run together on a cron schedule, e.g. "@every 1h" or "0 0 * * * *".
func New(spec string, log *zap.Logger, jobs ...Job) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(),
		jobs:    jobs,
		log:     log,
		timeout: 5 * time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts the schedule, cancels a run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.cancel()
	s.running.Lock()
	defer s.running.Unlock()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		s.log.Warn("previous run still in progress, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	_ = s.RunOnce(ctx)
}

// RunOnce runs every job in order. A failing job does not stop the others; all
// failures are returned together.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.log.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
			continue
		}
		s.log.Debug("scheduled job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	}
	return errors.Join(errs...)
}

// Package cron runs the storefront's periodic housekeeping. Only one
// instance in the cluster works a cycle at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultInterval = 24 * time.Hour
	workerLabel     = "cron"
)

// Job is one housekeeping task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type jobMetrics interface {
	ObserveBatch(worker string, duration time.Duration)
	IncSuccess(worker, eventType string)
	IncFailure(worker, eventType string)
}

// SchedulerParams wires a Scheduler. Metrics may be nil; nil jobs are
// ignored.
type SchedulerParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Jobs     []Job
	Metrics  jobMetrics
	Interval time.Duration
}

// Scheduler runs its jobs once per interval while holding the cluster lock.
type Scheduler struct {
	logg     *logger.Logger
	lock     Lock
	jobs     []Job
	metrics  jobMetrics
	interval time.Duration
}

func NewScheduler(p SchedulerParams) (*Scheduler, error) {
	s := &Scheduler{logg: p.Logger, lock: p.Lock, metrics: p.Metrics, interval: p.Interval}
	for _, job := range p.Jobs {
		if job != nil {
			s.jobs = append(s.jobs, job)
		}
	}
	switch {
	case s.logg == nil:
		return nil, errors.New("logger required")
	case s.lock == nil:
		return nil, errors.New("lock required")
	case len(s.jobs) == 0:
		return nil, errors.New("at least one job required")
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Run works a cycle right away, then one per interval, until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

// RunOnce works one cycle. It does nothing when another instance holds the
// lock. A failing job is logged and counted and the rest still run.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	unlock, err := s.lock.TryLock(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if unlock == nil {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	for _, job := range s.jobs {
		s.work(ctx, job)
	}
	return nil
}

func (s *Scheduler) work(ctx context.Context, job Job) {
	ctx = s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := guard(ctx, job)
	took := time.Since(start)
	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())

	if s.metrics != nil {
		s.metrics.ObserveBatch(workerLabel+":"+job.Name(), took)
		if err != nil {
			s.metrics.IncFailure(workerLabel, job.Name())
		} else {
			s.metrics.IncSuccess(workerLabel, job.Name())
		}
	}
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return
	}
	s.logg.Info(ctx, "cron job completed")
}

// guard turns a panicking job into a failed one.
func guard(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}

// Package scheduler: in-process periodic jobs (cache warm-up, session pruning)
package scheduler

import (
	"context"
	"fmt"
	"time"

	"infrabeacon/internal/logger"

	"github.com/robfig/cron/v3"
)

// Job is one unit of periodic work; it gets a context bounded by the job timeout.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func New() *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: time.Minute,
	}
}

// Add registers job under a standard cron spec or a descriptor such as "@every 5m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	logger.L().WithField("job", name).WithField("spec", spec).Info("cron_job_added")
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	t0 := time.Now()
	if err := job(ctx); err != nil {
		logger.L().WithError(err).WithField("job", name).Error("cron_job_error")
		return
	}
	logger.L().WithField("job", name).WithField("duration_ms", time.Since(t0).Milliseconds()).Debug("cron_job_done")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Len is the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Interval is the longest gap between consecutive runs of spec over its next few firings.
// Caches refreshed by a job use it to outlive the gap until the next refresh.
func Interval(spec string) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", spec, err)
	}
	var longest time.Duration
	at := sched.Next(time.Now().UTC())
	for i := 0; i < 8; i++ {
		next := sched.Next(at)
		if next.IsZero() {
			break
		}
		longest = max(longest, next.Sub(at))
		at = next
	}
	return longest, nil
}

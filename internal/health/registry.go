// Package health: periodic heartbeats against the external services the app depends on
package health

import (
	"context"
	"sync"
	"time"

	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
)

// Checker is implemented by adapters that can ping their backing service.
type Checker interface {
	Name() string
	Heartbeat(ctx context.Context) error
}

type Status struct {
	Healthy bool      `json:"healthy"`
	Last    time.Time `json:"last_check"`
	Error   string    `json:"error,omitempty"`
}

// Registry runs heartbeats on an interval and keeps the last result per component.
// Components start healthy until their first check says otherwise.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	st       map[string]Status
	interval time.Duration
	timeout  time.Duration
}

func NewRegistry(interval time.Duration) *Registry {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Registry{
		checkers: make(map[string]Checker),
		st:       make(map[string]Status),
		interval: interval,
		timeout:  3 * time.Second,
	}
}

func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Name()] = c
	r.st[c.Name()] = Status{Healthy: true, Last: time.Now()}
	logger.L().WithField("name", c.Name()).Info("health_registered")
}

// Start runs an immediate check, then one per interval until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	go func() {
		r.Check(ctx)
		t := time.NewTicker(r.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.Check(ctx)
			}
		}
	}()
}

// Check pings every component once, without holding the lock.
func (r *Registry) Check(ctx context.Context) {
	r.mu.RLock()
	cs := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		cs = append(cs, c)
	}
	r.mu.RUnlock()
	for _, c := range cs {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := c.Heartbeat(cctx)
		cancel()
		s := Status{Healthy: err == nil, Last: time.Now()}
		if err != nil {
			s.Error = err.Error()
			logger.L().WithError(err).WithField("name", c.Name()).Warn("heartbeat_fail")
			metrics.HeartbeatTotal.WithLabelValues(c.Name(), "fail").Inc()
		} else {
			metrics.HeartbeatTotal.WithLabelValues(c.Name(), "ok").Inc()
		}
		r.mu.Lock()
		r.st[c.Name()] = s
		r.mu.Unlock()
	}
}

// Snapshot returns a copy of every component's status and whether all are healthy.
func (r *Registry) Snapshot() (map[string]Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Status, len(r.st))
	ok := true
	for k, v := range r.st {
		out[k] = v
		ok = ok && v.Healthy
	}
	return out, ok
}

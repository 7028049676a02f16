package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/report"
)

// Memory keeps reports in process memory; used for development and tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*report.Report
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]*report.Report), now: time.Now}
}

// WithClock replaces the time source, for deterministic tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Create(_ context.Context, in *report.Report) (*report.Report, error) {
	r := in.Clone()
	report.PrepareNew(r, m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.items[r.ID]; dup {
		return nil, apperr.Persistence("create report", fmt.Errorf("id %s already exists", r.ID))
	}
	m.items[r.ID] = r
	return r.Clone(), nil
}

func (m *Memory) Get(_ context.Context, id string) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound(id)
	}
	return r.Clone(), nil
}

func (m *Memory) List(_ context.Context, f report.Filter) ([]*report.Report, error) {
	f = f.Normalized()
	m.mu.RLock()
	out := make([]*report.Report, 0, len(m.items))
	for _, r := range m.items {
		if f.Match(r) {
			out = append(out, r.Clone())
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) Candidates(_ context.Context, prefixes []string) ([]*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*report.Report
	for _, r := range m.items {
		for _, p := range prefixes {
			if strings.HasPrefix(r.Geohash, p) {
				out = append(out, r.Clone())
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]report.Nearby, error) {
	return report.FindNearby(ctx, m, lat, lng, radiusMeters)
}

func (m *Memory) Update(_ context.Context, id string, p report.Patch) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, apperr.NotFound(id)
	}
	p.Apply(r, m.now())
	return r.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Heartbeat(context.Context) error { return nil }

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	name string
	err  error
}

func (p *fakeChecker) Name() string                    { return p.name }
func (p *fakeChecker) Heartbeat(context.Context) error { return p.err }

func TestRegistryCheck(t *testing.T) {
	r := NewRegistry(time.Minute)
	db := &fakeChecker{name: "postgres"}
	cache := &fakeChecker{name: "redis"}
	r.Register(db)
	r.Register(cache)

	_, ok := r.Snapshot()
	assert.True(t, ok, "healthy until checked")

	cache.err = errors.New("connection refused")
	r.Check(context.Background())
	st, ok := r.Snapshot()
	assert.False(t, ok)
	assert.True(t, st["postgres"].Healthy)
	assert.False(t, st["redis"].Healthy)
	assert.Equal(t, "connection refused", st["redis"].Error)

	cache.err = nil
	r.Check(context.Background())
	_, ok = r.Snapshot()
	assert.True(t, ok)
}

func TestRegistryStartStops(t *testing.T) {
	r := NewRegistry(5 * time.Millisecond)
	p := &fakeChecker{name: "s3", err: errors.New("denied")}
	r.Register(p)
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	assert.Eventually(t, func() bool {
		st, _ := r.Snapshot()
		return !st["s3"].Healthy
	}, time.Second, 5*time.Millisecond)
	cancel()
}

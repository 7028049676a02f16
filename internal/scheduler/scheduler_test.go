package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New()
	err := s.Add("broken", "every now and then", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestInterval(t *testing.T) {
	cases := map[string]time.Duration{
		"@every 90s":  90 * time.Second,
		"@hourly":     time.Hour,
		"*/5 * * * *": 5 * time.Minute,
		"0 9 * * *":   24 * time.Hour,
	}
	for spec, want := range cases {
		got, err := Interval(spec)
		require.NoError(t, err, spec)
		assert.Equal(t, want, got, spec)
	}
	_, err := Interval("every now and then")
	assert.Error(t, err)
}

func TestJobsRun(t *testing.T) {
	s := New()
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))
	assert.Equal(t, 1, s.Len())
	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

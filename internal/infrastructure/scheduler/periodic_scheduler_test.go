package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPeriodicScheduler_Register(t *testing.T) {
	s := NewPeriodicScheduler(zaptest.NewLogger(t))
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		job  Job
	}{
		{name: "Missing name", job: Job{Interval: time.Second, Run: noop}},
		{name: "Missing run func", job: Job{Name: "sweep", Interval: time.Second}},
		{name: "Zero interval", job: Job{Name: "sweep", Run: noop}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Register(tt.job), ErrInvalidConfig)
		})
	}

	require.NoError(t, s.Register(Job{Name: "sweep", Interval: time.Second, Run: noop}))
	assert.ErrorIs(t, s.Register(Job{Name: "sweep", Interval: time.Second, Run: noop}), ErrInvalidConfig)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	assert.ErrorIs(t, s.Register(Job{Name: "late", Interval: time.Second, Run: noop}), ErrSchedulerRunning)
}

func TestPeriodicScheduler_RunsOnInterval(t *testing.T) {
	s := NewPeriodicScheduler(zaptest.NewLogger(t))
	var runs atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:       "sweep",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())
	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestPeriodicScheduler_FailuresAndPanicsAreRecorded(t *testing.T) {
	s := NewPeriodicScheduler(zaptest.NewLogger(t))
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{
		Name:     "reconcile",
		Interval: time.Hour,
		Run: func(context.Context) error {
			if calls.Add(1) == 1 {
				return errors.New("database unavailable")
			}
			panic("boom")
		},
	}))

	assert.ErrorIs(t, s.TriggerNow("reconcile"), ErrSchedulerNotRunning)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.NoError(t, s.TriggerNow("reconcile"))
	require.Eventually(t, func() bool {
		st, _ := s.Stats("reconcile")
		return st.Runs == 1
	}, time.Second, 5*time.Millisecond)
	st, ok := s.Stats("reconcile")
	require.True(t, ok)
	assert.Equal(t, "database unavailable", st.LastError)

	require.NoError(t, s.TriggerNow("reconcile"))
	require.Eventually(t, func() bool {
		st, _ := s.Stats("reconcile")
		return st.Runs == 2
	}, time.Second, 5*time.Millisecond)
	st, _ = s.Stats("reconcile")
	assert.Equal(t, int64(2), st.Failures)
	assert.Contains(t, st.LastError, "panicked")

	assert.ErrorIs(t, s.TriggerNow("missing"), ErrJobNotFound)
}

func TestPeriodicScheduler_NoOverlap(t *testing.T) {
	s := NewPeriodicScheduler(zaptest.NewLogger(t))
	var active, peak atomic.Int32
	release := make(chan struct{})
	require.NoError(t, s.Register(Job{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			n := active.Add(1)
			defer active.Add(-1)
			if n > peak.Load() {
				peak.Store(n)
			}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	}))
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.TriggerNow("slow"))
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.TriggerNow("slow"))
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), peak.Load())
	st, _ := s.Stats("slow")
	assert.Equal(t, int64(1), st.Runs)
}

func TestPeriodicScheduler_Snapshot(t *testing.T) {
	s := NewPeriodicScheduler(zaptest.NewLogger(t))
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register(Job{Name: "reservation-expiry", Interval: time.Hour, Run: noop}))
	require.NoError(t, s.Register(Job{Name: "checkout-reconciliation", Interval: time.Hour, Run: noop}))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	require.NoError(t, s.TriggerNow("reservation-expiry"))
	require.Eventually(t, func() bool {
		return s.Snapshot()["reservation-expiry"].Runs == 1
	}, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Len(t, snap, 2)
	assert.Zero(t, snap["checkout-reconciliation"].Runs)
}

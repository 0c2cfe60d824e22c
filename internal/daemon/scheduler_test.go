package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_ScheduleCron(t *testing.T) {
	t.Run("returns job id for valid cron", func(t *testing.T) {
		s := newTestScheduler(t)
		id, err := s.ScheduleCron("test", "0 */4 * * *", func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects invalid cron", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.ScheduleCron("test", "this is not a cron", func() {})
		require.Error(t, err)
	})
}

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s := newTestScheduler(t)
		id, err := s.ScheduleEvery("test", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s := newTestScheduler(t)
		_, err := s.ScheduleEvery("test", 0, func() {})
		require.Error(t, err)
	})
}

func TestScheduler_ScheduleAt(t *testing.T) {
	s := newTestScheduler(t)
	s.Start(context.Background())

	var fired atomic.Int32
	id, err := s.ScheduleAt("once", time.Now().Add(200*time.Millisecond), func() { fired.Add(1) })
	require.NoError(t, err)

	var next time.Time
	require.Eventually(t, func() bool {
		var ok bool
		next, ok = s.NextRun(id)
		return ok || fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
	if !next.IsZero() {
		assert.WithinDuration(t, time.Now(), next, time.Second)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

	_, err = s.ScheduleAt("past", time.Now().Add(-time.Second), func() {})
	require.Error(t, err)
}

func TestScheduler_Remove(t *testing.T) {
	s := newTestScheduler(t)
	s.Start(context.Background())

	var fired atomic.Int32
	id, err := s.ScheduleAt("once", time.Now().Add(300*time.Millisecond), func() { fired.Add(1) })
	require.NoError(t, err)
	s.Remove(id)
	s.Remove(id)
	s.Remove("")
	s.Remove("not-a-uuid")

	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, fired.Load())
	_, ok := s.NextRun(id)
	assert.False(t, ok)
}

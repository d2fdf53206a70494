package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bulkbuy-api/internal/core/tasks"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/testutil"
)

// inlineSink 同步执行任务，便于断言
type inlineSink struct {
	mu     sync.Mutex
	names  []string
	reject bool
}

func (s *inlineSink) Submit(name string, fn tasks.Func) bool {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	if s.reject {
		return false
	}
	_ = fn(context.Background())
	return true
}

func TestPresenceTrackerTouch(t *testing.T) {
	st := testutil.NewStore()
	ctx := context.Background()
	u, err := testutil.SeedUser(ctx, st.Users(), "Alice", "alice@example.com")
	require.NoError(t, err)
	idle, err := testutil.SeedUser(ctx, st.Users(), "Off", "off@example.com", func(u *domain.User) { u.IsActive = false })
	require.NoError(t, err)

	clock := testutil.NewClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	sink := &inlineSink{}
	tr := NewPresenceTracker(st.Users(), sink, zaptest.NewLogger(t))
	tr.now = clock.Now

	tr.Touch(u.ID)
	tr.Touch("")
	tr.Touch(idle.ID)
	assert.Equal(t, []string{"presence.touch", "presence.touch"}, sink.names)

	got, err := st.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
	assert.Equal(t, clock.Now(), got.LastActivity)

	// 已停用用户不会被标记在线
	got, err = st.Users().FindByID(ctx, idle.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	sink.reject = true
	assert.NotPanics(t, func() { tr.Touch(u.ID) })
}

// heldSink 先攒下任务，flush 时再执行
type heldSink struct {
	mu   sync.Mutex
	jobs []tasks.Func
}

func (s *heldSink) Submit(_ string, fn tasks.Func) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, fn)
	return true
}

func (s *heldSink) flush() {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, fn := range jobs {
		_ = fn(context.Background())
	}
}

func TestPresenceTrackerEnd(t *testing.T) {
	st := testutil.NewStore()
	ctx := context.Background()
	u, err := testutil.SeedUser(ctx, st.Users(), "Alice", "alice@example.com")
	require.NoError(t, err)

	clock := testutil.NewClock(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	sink := &heldSink{}
	tr := NewPresenceTracker(st.Users(), sink, zaptest.NewLogger(t))
	tr.now = clock.Now

	tr.Touch(u.ID)
	tr.End(ctx, u.ID)
	sink.flush()

	got, err := st.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	// 重新登录后的刷新照常生效
	clock.Advance(time.Second)
	tr.Touch(u.ID)
	sink.flush()
	got, err = st.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
	assert.Equal(t, clock.Now(), got.LastActivity)

	tr.End(ctx, "")
}

func TestPresenceSweepOnce(t *testing.T) {
	st := testutil.NewStore()
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	seed := func(name, email string, online bool, last time.Time) *domain.User {
		u, err := testutil.SeedUser(ctx, st.Users(), name, email, func(u *domain.User) {
			u.IsOnline = online
			u.LastActivity = last
		})
		require.NoError(t, err)
		return u
	}
	stale := seed("Stale", "stale@example.com", true, now.Add(-6*time.Minute))
	edge := seed("Edge", "edge@example.com", true, now.Add(-DefaultIdleTimeout))
	fresh := seed("Fresh", "fresh@example.com", true, now.Add(-time.Minute))
	seed("Offline", "offline@example.com", false, now.Add(-time.Hour))

	w := NewPresenceSweeper(st.Users(), zaptest.NewLogger(t), 0, 0)
	w.now = func() time.Time { return now }

	n, err := w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, tc := range []struct {
		u      *domain.User
		online bool
	}{
		{stale, false},
		{edge, true},
		{fresh, true},
	} {
		got, err := st.Users().FindByID(ctx, tc.u.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.online, got.IsOnline, tc.u.Name)
	}

	n, err = w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPresenceSweeperStartStop(t *testing.T) {
	st := testutil.NewStore()
	ctx := context.Background()
	u, err := testutil.SeedUser(ctx, st.Users(), "Stale", "stale@example.com", func(u *domain.User) {
		u.IsOnline = true
		u.LastActivity = time.Now().Add(-time.Hour)
	})
	require.NoError(t, err)

	w := NewPresenceSweeper(st.Users(), zaptest.NewLogger(t), 10*time.Millisecond, time.Minute)
	w.Start()
	defer w.Stop()

	assert.Eventually(t, func() bool {
		got, err := st.Users().FindByID(ctx, u.ID)
		return err == nil && !got.IsOnline
	}, time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
}

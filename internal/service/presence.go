package service

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"bulkbuy-api/internal/core/tasks"
	"bulkbuy-api/internal/domain"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultIdleTimeout   = 5 * time.Minute

	// 登出记录保留时长，远大于任务排队时间
	endedRetention = 10 * time.Minute
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkbuy_presence_sweeps_total",
		Help: "Presence sweeps by result",
	}, []string{"result"})
	sweptOffline = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulkbuy_presence_marked_offline_total",
		Help: "Users flipped offline by the presence sweep",
	})
)

// TaskSink 后台尽力任务的投递口
type TaskSink interface {
	Submit(name string, fn tasks.Func) bool
}

// PresenceTracker 每个已认证请求异步刷新 lastActivity
type PresenceTracker struct {
	users domain.UserRepository
	sink  TaskSink
	log   *zap.Logger
	now   func() time.Time

	// 刷新持读锁，End 持写锁；ended 记录每个用户最近一次登出时间
	mu    sync.RWMutex
	ended map[string]time.Time
}

func NewPresenceTracker(users domain.UserRepository, sink TaskSink, l *zap.Logger) *PresenceTracker {
	if l == nil {
		l = zap.NewNop()
	}
	return &PresenceTracker{users: users, sink: sink, log: l, now: time.Now, ended: map[string]time.Time{}}
}

// Touch 不等待结果；失败由 sink 记录
func (t *PresenceTracker) Touch(uid string) {
	if uid == "" {
		return
	}
	now := t.now()
	ok := t.sink.Submit("presence.touch", func(ctx context.Context) error {
		t.mu.RLock()
		defer t.mu.RUnlock()
		// 登出前产生的刷新作废
		if at, ok := t.ended[uid]; ok && !now.After(at) {
			return nil
		}
		return t.users.TouchActivity(ctx, uid, now)
	})
	if !ok {
		t.log.Debug("activity stamp skipped", zap.String("user_id", uid))
	}
}

// End 登出时调用：排队中的刷新不再生效，并确保用户离线
func (t *PresenceTracker) End(ctx context.Context, uid string) {
	if uid == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, at := range t.ended {
		if now.Sub(at) > endedRetention {
			delete(t.ended, id)
		}
	}
	t.ended[uid] = now

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := t.users.MarkOffline(ctx, uid); err != nil {
		t.log.Warn("mark offline failed", zap.String("user_id", uid), zap.Error(err))
	}
}

// PresenceSweeper 定时把空闲用户置为离线
type PresenceSweeper struct {
	users    domain.UserRepository
	log      *zap.Logger
	interval time.Duration
	idle     time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewPresenceSweeper(users domain.UserRepository, l *zap.Logger, interval, idle time.Duration) *PresenceSweeper {
	if l == nil {
		l = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &PresenceSweeper{
		users:    users,
		log:      l,
		interval: interval,
		idle:     idle,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (w *PresenceSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("presence sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("idle_timeout", w.idle))
}

func (w *PresenceSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("presence sweeper stopped")
	})
}

func (w *PresenceSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, _ = w.SweepOnce(ctx)
			cancel()
		}
	}
}

// SweepOnce 把 lastActivity 早于 now-idle 的在线用户置为离线；错误只记日志
func (w *PresenceSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := w.users.MarkIdleOffline(ctx, w.now().Add(-w.idle))
	if err != nil {
		sweepRuns.WithLabelValues("error").Inc()
		w.log.Error("presence sweep failed", zap.Error(err))
		return 0, err
	}
	sweepRuns.WithLabelValues("ok").Inc()
	if n > 0 {
		sweptOffline.Add(float64(n))
		w.log.Info("marked inactive users offline", zap.Int64("count", n))
	}
	return n, nil
}

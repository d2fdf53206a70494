// Package tasks 受监管的后台尽力任务：失败只记日志，不影响请求
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	taskTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bulkbuy_background_tasks_total",
		Help: "Background tasks by name and result",
	}, []string{"task", "result"})
)

// Func 单个后台任务
type Func func(ctx context.Context) error

type job struct {
	name string
	fn   Func
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // 单任务超时
}

// Sink 有界队列 + 固定 worker；队列满时丢弃并记日志
type Sink struct {
	log     *zap.Logger
	opt     Options
	queue   chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewSink(l *zap.Logger, opt Options) *Sink {
	if opt.Workers <= 0 {
		opt.Workers = 4
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 1024
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 5 * time.Second
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Sink{log: l, opt: opt, queue: make(chan job, opt.QueueSize)}
}

func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	for i := 0; i < s.opt.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Submit 非阻塞投递；sink 已关闭或队列已满返回 false
func (s *Sink) Submit(name string, fn Func) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- job{name: name, fn: fn}:
		return true
	default:
		taskTotal.WithLabelValues(name, "dropped").Inc()
		s.log.Warn("task queue full, dropped", zap.String("task", name))
		return false
	}
}

// Stop 停止接收并等待队列排空，ctx 到期则放弃等待
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for j := range s.queue {
		s.run(j)
	}
}

func (s *Sink) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opt.Timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return j.fn(ctx)
	}()
	if err != nil {
		taskTotal.WithLabelValues(j.name, "error").Inc()
		s.log.Warn("background task failed", zap.String("task", j.name), zap.Error(err))
		return
	}
	taskTotal.WithLabelValues(j.name, "ok").Inc()
}

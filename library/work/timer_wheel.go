package work

import (
	"context"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	defaultWheelTick   = 10 * time.Millisecond // 时间轮精度, 需小于最短的动画间隔
	defaultWheelSize   = 128
	defaultStopTimeout = 3 * time.Second
)

// WheelOption 调度器选项
type WheelOption func(*wheelScheduler)

func WithTick(d time.Duration) WheelOption {
	return func(s *wheelScheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

func WithContext(ctx context.Context) WheelOption {
	return func(s *wheelScheduler) { s.ctx = ctx }
}

// WithExecutor 到期任务交给 exec 执行. 传入串行队列即可保证回调与其他任务互斥
func WithExecutor(exec IExecutor) WheelOption {
	return func(s *wheelScheduler) { s.executor = exec }
}

type wheelScheduler struct {
	tick     time.Duration
	executor IExecutor
	tw       *timingwheel.TimingWheel

	mu     sync.Mutex
	tasks  map[int64]*timingwheel.Timer
	nextID int64
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // 已到期但未执行完的任务
	once   sync.Once
}

// NewWheelScheduler 创建时间轮调度器, ctx 结束时时间轮停止
func NewWheelScheduler(opts ...WheelOption) Scheduler {
	s := &wheelScheduler{
		tick:  defaultWheelTick,
		ctx:   context.Background(),
		tasks: make(map[int64]*timingwheel.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.executor == nil {
		log.Warn("[wheelScheduler] no executor provided, tasks run in new goroutines")
	}

	s.ctx, s.cancel = context.WithCancel(s.ctx)
	s.tw = timingwheel.NewTimingWheel(s.tick, defaultWheelSize)
	s.tw.Start()
	go func() {
		<-s.ctx.Done()
		s.tw.Stop()
	}()
	return s
}

func (s *wheelScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *wheelScheduler) Once(delay time.Duration, f func()) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		log.Warn("[wheelScheduler] shut down, task rejected")
		return -1
	}
	s.nextID++
	id := s.nextID
	// 持锁注册, fire 拿到锁时任务一定已入表
	s.tasks[id] = s.tw.AfterFunc(delay, func() { s.fire(id, f) })
	return id
}

// fire 到期后出表并交给执行器, 已取消的任务不再执行
func (s *wheelScheduler) fire(id int64, f func()) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.wg.Add(1)
	s.mu.Unlock()

	ExecuteAsync(s.executor, func() {
		defer s.wg.Done()
		f()
	})
}

func (s *wheelScheduler) Cancel(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[taskID]; ok {
		t.Stop()
		delete(s.tasks, taskID)
	}
}

func (s *wheelScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		t.Stop()
		delete(s.tasks, id)
	}
}

// Stop 停止调度器，等待已到期的任务执行完
func (s *wheelScheduler) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.CancelAll()
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			log.Info("[wheelScheduler] stopped")
		case <-time.After(defaultStopTimeout):
			log.Warnf("[wheelScheduler] stop timed out after %v", defaultStopTimeout)
		}
	})
}

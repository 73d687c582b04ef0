package work

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/panjf2000/ants/v2"

	"github.com/yola1107/ludo/library/xgo"
)

const (
	poolExpiry      = 60 * time.Second // 闲置 worker 回收间隔
	poolStopTimeout = 3 * time.Second
)

// LoopStatus 协程池状态
type LoopStatus struct {
	Capacity int // 池最大容量
	Running  int // 运行中协程数
	Free     int // 空闲协程数
}

// ITaskLoop 协程池管理接口. 任务之间无先后顺序保证
type ITaskLoop interface {
	Start() error
	Stop()
	Status() LoopStatus
	Post(job func())
	PostCtx(ctx context.Context, job func())
}

// antsLoop 基于 ants 的协程池, 池未启动或已满时退化为新开协程
type antsLoop struct {
	mu   sync.RWMutex
	pool *ants.Pool
	size int
}

// NewAntsLoop 创建协程池实例
func NewAntsLoop(size int) ITaskLoop {
	return &antsLoop{size: size}
}

func (l *antsLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool != nil {
		log.Warnf("antsLoop already started.")
		return nil
	}
	pool, err := ants.NewPool(l.size, ants.WithExpiryDuration(poolExpiry))
	if err != nil {
		return fmt.Errorf("pool init failed: %w", err)
	}
	l.pool = pool
	log.Infof("antsLoop start... [size:%d]", l.size)
	return nil
}

// Stop 停止接收任务, 等待已提交的任务执行完
func (l *antsLoop) Stop() {
	l.mu.Lock()
	p := l.pool
	l.pool = nil
	l.mu.Unlock()

	if p == nil {
		return
	}
	log.Infof("antsLoop stopping [running:%d]", p.Running())
	if err := p.ReleaseTimeout(poolStopTimeout); err != nil {
		log.Warnf("antsLoop release timeout: %v", err)
	}
}

func (l *antsLoop) Status() LoopStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.pool == nil {
		return LoopStatus{Capacity: l.size}
	}
	capacity, running := l.pool.Cap(), l.pool.Running()
	return LoopStatus{
		Capacity: capacity,
		Running:  running,
		Free:     max(capacity-running, 0),
	}
}

func (l *antsLoop) Post(job func()) {
	l.PostCtx(context.Background(), job)
}

// PostCtx ctx 已结束的任务直接丢弃
func (l *antsLoop) PostCtx(ctx context.Context, job func()) {
	if ctx.Err() != nil {
		return
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.pool == nil || l.pool.IsClosed() {
		l.fallback(ctx, job, "loop not started or loop is closed")
		return
	}
	if err := l.pool.Submit(func() { safeRun(ctx, job) }); err != nil {
		l.fallback(ctx, job, err.Error())
	}
}

func (l *antsLoop) fallback(ctx context.Context, job func(), reason string) {
	log.Warnf("antsLoop fallback. reason=%s", reason)
	go safeRun(ctx, job)
}

func safeRun(ctx context.Context, fn func()) {
	defer xgo.RecoverFromError(nil)
	if ctx.Err() == nil {
		fn()
	}
}

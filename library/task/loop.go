package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/library/xgo"
)

/*
	串行任务队列: 单协程按投递顺序执行, 所有对局状态的修改都经过这里
*/

var (
	ErrLoopStopped = errors.New("task loop stopped")
	ErrJobPanic    = errors.New("task job panic")
)

type Loop struct {
	jobs    chan func()
	quit    chan struct{}
	once    sync.Once
	started sync.Once
}

// NewLoop 创建一个Loop队列，jobsCnt为队列缓冲长度
func NewLoop(jobsCnt int) *Loop {
	return &Loop{
		jobs: make(chan func(), jobsCnt),
		quit: make(chan struct{}),
	}
}

func (lp *Loop) Start() {
	lp.started.Do(func() {
		log.Infof("loop start ..")
		go lp.run()
	})
}

func (lp *Loop) run() {
	for {
		select {
		case <-lp.quit:
			log.Info("Loop routine stop.")
			return
		case job := <-lp.jobs:
			lp.exec(job)
		}
	}
}

// exec 单个任务 panic 不影响后续任务
func (lp *Loop) exec(job func()) {
	defer xgo.RecoverFromError(nil)
	job()
}

func (lp *Loop) Stop() {
	lp.once.Do(func() { close(lp.quit) })
}

func (lp *Loop) Jobs() int {
	return len(lp.jobs)
}

// Post 投递任务, 保持投递顺序. 队列停止后丢弃
func (lp *Loop) Post(job func()) {
	select {
	case <-lp.quit:
		log.Warnf("loop stopped, job dropped")
		return
	default:
	}
	select {
	case <-lp.quit:
		log.Warnf("loop stopped, job dropped")
	case lp.jobs <- job:
	}
}

// PostAndWait 投递任务并等待结果, 任务 panic 时返回 ErrJobPanic
func (lp *Loop) PostAndWait(ctx context.Context, job func() any) (any, error) {
	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	lp.Post(func() {
		defer xgo.RecoverFromError(func(e any) {
			ch <- result{err: fmt.Errorf("%w: %v", ErrJobPanic, e)}
		})
		ch <- result{v: job()}
	})
	select {
	case r := <-ch:
		return r.v, r.err
	case <-lp.quit:
		return nil, ErrLoopStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

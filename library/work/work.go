package work

import "context"

/*
	任务池+定时器任务
*/

const defaultPendingNum = 100 // 默认任务池大小

// IWorkStore 异步任务池与延迟调度器的组合
type IWorkStore interface {
	ITaskLoop
	Scheduler
}

type workStore struct {
	ITaskLoop
	Scheduler
}

// NewWorkStore 创建任务池与时间轮. timerExec 为空时定时回调在任务池中执行
func NewWorkStore(ctx context.Context, timerExec IExecutor, pendingNum ...int) IWorkStore {
	size := defaultPendingNum
	if len(pendingNum) > 0 && pendingNum[0] > 0 {
		size = pendingNum[0]
	}
	l := NewAntsLoop(size)
	if timerExec == nil {
		timerExec = l
	}
	return &workStore{
		ITaskLoop: l,
		Scheduler: NewWheelScheduler(WithContext(ctx), WithExecutor(timerExec)),
	}
}

// Stop 先停定时器, 再等任务池中的任务执行完
func (w *workStore) Stop() {
	w.Scheduler.Stop()
	w.ITaskLoop.Stop()
}

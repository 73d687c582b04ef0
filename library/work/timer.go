package work

import (
	"time"

	"github.com/yola1107/ludo/library/xgo"
)

// Scheduler 延迟任务调度器
type Scheduler interface {
	Len() int                                 // 等待中的任务数量
	Once(delay time.Duration, f func()) int64 // 注册一次性任务, 调度器已关闭返回 -1
	Cancel(taskID int64)                      // 取消指定任务
	CancelAll()                               // 取消所有任务
	Stop()                                    // 停止调度器
}

// IExecutor 任务执行器接口，用于自定义任务执行方式（如串行队列）
type IExecutor interface {
	Post(job func())
}

// ExecuteAsync 通过执行器运行 f, 没有执行器时新开协程
func ExecuteAsync(executor IExecutor, f func()) {
	run := func() {
		defer xgo.RecoverFromError(nil)
		f()
	}
	if executor != nil {
		executor.Post(run)
	} else {
		go run()
	}
}

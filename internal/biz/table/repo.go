package table

import (
	"github.com/yola1107/ludo/library/work"
)

// Repo 抽象接口
type Repo interface {
	GetTimer() work.Scheduler    // 逐格动画的定时器, 回调必须投递到对局的串行队列
	SaveSnapshot(snap *Snapshot) // 异步保存, 不阻塞对局
}

package biz

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/yola1107/ludo/internal/biz/table"
	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/library/event"
	"github.com/yola1107/ludo/library/ext"
	"github.com/yola1107/ludo/library/task"
	"github.com/yola1107/ludo/library/work"
	"github.com/yola1107/ludo/pkg/codes"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(NewUsecase)

// 实现 table.Repo
var _ table.Repo = (*Usecase)(nil)

const (
	defaultJobsNum    = 1024 // 串行队列缓冲
	defaultPendingNum = 64   // 异步保存协程池大小
	saveTimeout       = 3 * time.Second
	closeTimeout      = 3 * time.Second
)

// SnapshotRepo 对局快照存储
type SnapshotRepo interface {
	Save(ctx context.Context, s *table.Snapshot) error
	Load(ctx context.Context, gameID string) (*table.Snapshot, error)
}

// DiceRoller 骰子生成器, 返回 1..6
type DiceRoller func() int32

func defaultRoller() int32 {
	return ext.RandInt[int32](model.MinDice, model.MaxDice+1)
}

// Usecase 对局用例: 所有意图都投递到串行队列, 调用方等待结果
type Usecase struct {
	repo SnapshotRepo
	log  *log.Helper

	rc    conf.Room       // 房间配置, 只在串行队列中读写
	loop  *task.Loop      // 串行队列
	ws    work.IWorkStore // 异步任务池 + 时间轮
	table *table.Table    // 当前对局, 只在串行队列中访问
	roll  DiceRoller      //
	ctx   context.Context //
	saved saveState       // 异步保存的顺序保护
}

type saveState struct {
	mu   sync.Mutex
	seq  int64 // 已提交的保存序号
	done int64 // 已落盘的最大序号
}

// NewUsecase new a game usecase.
func NewUsecase(repo SnapshotRepo, bus *event.Bus, c *conf.Room, logger log.Logger) (*Usecase, func(), error) {
	uc := &Usecase{
		repo: repo,
		log:  log.NewHelper(logger),
		loop: task.NewLoop(defaultJobsNum),
		roll: defaultRoller,
	}
	// 值拷贝: 启动配置的指针由配置监听协程原地更新, 串行队列只使用 bus 推送来的副本
	uc.rc.Game = conf.DefaultGame()
	if c != nil && c.Game != nil {
		g := *c.Game
		uc.rc.Game = &g
	}
	if c != nil && c.LogCache != nil {
		lc := *c.LogCache
		uc.rc.LogCache = &lc
	}

	ctx, cancel := context.WithCancel(context.Background())
	uc.ctx = ctx
	// 时间轮回调投递到串行队列, 保证逐格动画与意图处理不并发
	uc.ws = work.NewWorkStore(ctx, uc.loop, defaultPendingNum)

	if bus != nil {
		uc.subscribe(bus)
	}

	cleanup := func() {
		uc.log.Info("closing the game resources")
		cctx, ccancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := uc.CloseGame(cctx); err != nil && !errors.Is(err, codes.ErrNoGame) {
			uc.log.Warnf("close game failed: %v", err)
		}
		ccancel()
		uc.ws.Stop()
		cancel()
		uc.loop.Stop()
	}

	uc.loop.Start()
	if err := uc.ws.Start(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return uc, cleanup, nil
}

// SetDiceRoller 替换骰子生成器, 需在对局开始前调用
func (uc *Usecase) SetDiceRoller(r DiceRoller) {
	if r != nil {
		uc.roll = r
	}
}

// GetTimer 获取定时器
func (uc *Usecase) GetTimer() work.Scheduler {
	return uc.ws
}

// SaveSnapshot 在协程池中异步保存, 较旧的快照不会覆盖较新的
func (uc *Usecase) SaveSnapshot(s *table.Snapshot) {
	if uc.repo == nil || s == nil {
		return
	}
	uc.saved.mu.Lock()
	uc.saved.seq++
	seq := uc.saved.seq
	uc.saved.mu.Unlock()

	uc.ws.PostCtx(uc.ctx, func() {
		uc.saved.mu.Lock()
		defer uc.saved.mu.Unlock()
		if seq < uc.saved.done {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := uc.repo.Save(ctx, s); err != nil {
			uc.log.Warnf("save snapshot failed: game=%s err=%v", s.GameID, err)
			return
		}
		uc.saved.done = seq
	})
}

// NewGame 关闭当前对局并开一局新的
func (uc *Usecase) NewGame(ctx context.Context, sink table.Sink) (string, error) {
	v, err := uc.loop.PostAndWait(ctx, func() any {
		if uc.table != nil {
			uc.table.Close()
		}
		uc.table = table.NewTable(&uc.rc, uc, sink)
		uc.table.Begin()
		return uc.table.ID
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Resume 从存储中恢复对局
func (uc *Usecase) Resume(ctx context.Context, gameID string, sink table.Sink) error {
	if uc.repo == nil {
		return codes.ErrNotFound
	}
	snap, err := uc.repo.Load(ctx, gameID)
	if err != nil {
		return err
	}
	return uc.post(ctx, func() error {
		t := table.NewTable(&uc.rc, uc, sink)
		if err := t.Restore(snap); err != nil {
			t.Close()
			return err
		}
		if uc.table != nil {
			uc.table.Close()
		}
		uc.table = t
		return nil
	})
}

// RollDice 玩家掷骰, 返回点数
func (uc *Usecase) RollDice(ctx context.Context, p model.PlayerID) (int32, error) {
	var dice int32
	err := uc.withTable(ctx, func(t *table.Table) error {
		dice = uc.roll()
		return t.OnRollDice(p, dice)
	})
	if err != nil {
		return 0, err
	}
	return dice, nil
}

// SelectAndMove 玩家选择 cell 上的第 index 颗棋子移动
func (uc *Usecase) SelectAndMove(ctx context.Context, p model.PlayerID, index, cell int32) error {
	return uc.withTable(ctx, func(t *table.Table) error {
		return t.OnSelectAndMove(p, index, cell)
	})
}

// State 当前对局快照
func (uc *Usecase) State(ctx context.Context) (*table.Snapshot, error) {
	var snap *table.Snapshot
	err := uc.withTable(ctx, func(t *table.Table) error {
		snap = t.Snapshot()
		return nil
	})
	return snap, err
}

// CloseGame 关闭当前对局, 进行中的移动立即走完
func (uc *Usecase) CloseGame(ctx context.Context) error {
	return uc.withTable(ctx, func(t *table.Table) error {
		t.Close()
		uc.table = nil
		return nil
	})
}

func (uc *Usecase) withTable(ctx context.Context, fn func(t *table.Table) error) error {
	return uc.post(ctx, func() error {
		if uc.table == nil {
			return codes.ErrNoGame
		}
		return fn(uc.table)
	})
}

func (uc *Usecase) post(ctx context.Context, fn func() error) error {
	v, err := uc.loop.PostAndWait(ctx, func() any { return fn() })
	if err != nil {
		return err
	}
	if e, ok := v.(error); ok && e != nil {
		return e
	}
	return nil
}

// 配置热更新: 新参数投递到串行队列后生效
func (uc *Usecase) subscribe(bus *event.Bus) {
	bus.Subscribe(conf.TopicGame, func(val any) {
		g, ok := val.(*conf.Game)
		if !ok || g == nil {
			return
		}
		cp := *g
		uc.loop.Post(func() {
			uc.rc.Game = &cp
			if uc.table != nil {
				uc.table.SetGameConfig(&cp)
			}
		})
	})
	bus.Subscribe(conf.TopicLogCache, func(val any) {
		lc, ok := val.(*conf.LogCache)
		if !ok || lc == nil {
			return
		}
		cp := *lc
		uc.loop.Post(func() {
			uc.rc.LogCache = &cp // 下一局生效
		})
	})
}

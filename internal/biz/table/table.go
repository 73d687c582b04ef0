package table

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/pkg/codes"
)

// Table 一局四人对局
//
// 除 Stage 外的字段只能在串行队列中访问
type Table struct {
	ID       string // 对局ID
	isClosed bool   // 是否已关闭
	repo     Repo   //
	sink     Sink   // 渲染/音效

	// 游戏变量
	game     conf.Game      // 对局参数, 热更新时整体替换
	stage    *Stage         // 阶段状态
	mLog     *Log           // 对局日志
	board    *model.Board   // 游戏棋盘
	active   model.PlayerID // 当前行动玩家
	dice     int32          // 本回合骰子点数, 0 表示未掷
	canRoll  bool           // 掷骰闸门
	selected int32          // 当前选中的棋子, 仅供界面使用
	winner   model.PlayerID // 赢家
	moves    int32          // 已完成的移动次数
	seq      *sequence      // 正在播放的移动序列
	ff       bool           // 快进: 剩余步骤不再等待
}

func NewTable(c *conf.Room, repo Repo, sink Sink) *Table {
	if sink == nil {
		sink = NopSink{}
	}
	game := conf.DefaultGame()
	if c != nil && c.Game != nil {
		game = c.Game
	}
	var lc *conf.LogCache
	if c != nil {
		lc = c.LogCache
	}
	id := uuid.NewString()
	return &Table{
		ID:       id,
		repo:     repo,
		sink:     sink,
		game:     *game,
		stage:    &Stage{},
		mLog:     NewTableLog(id, lc),
		board:    model.NewBoard(nil),
		active:   model.Player1,
		canRoll:  true,
		selected: -1,
	}
}

func (t *Table) Desc() string {
	return fmt.Sprintf("(T:%s St:%v active:%v dice:%d canRoll:%v winner:%v moves:%d)",
		shortID(t.ID), t.stage.GetState(), t.active, t.dice, t.canRoll, t.winner, t.moves)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Begin 开局: 玩家1先手
func (t *Table) Begin() {
	t.updateStage(StRolling)
	t.pushActivePlayer()
	t.mLog.begin(t.Desc())
	log.Infof("******** <游戏开始> %s", t.Desc())
	t.save()
}

// Board 只读访问, 仅限串行队列中使用
func (t *Table) Board() *model.Board { return t.board }

func (t *Table) GetStage() StageID         { return t.stage.GetState() }
func (t *Table) GetActive() model.PlayerID { return t.active }
func (t *Table) GetWinner() model.PlayerID { return t.winner }
func (t *Table) InFlight() bool            { return t.seq != nil }
func (t *Table) IsClosed() bool            { return t.isClosed }
func (t *Table) GameConfig() conf.Game     { return t.game }

// SetGameConfig 热更新对局参数, 下一步起生效
func (t *Table) SetGameConfig(g *conf.Game) {
	if g == nil {
		return
	}
	t.game = *g
	t.mLog.config(g)
	log.Infof("[table] game config updated. %s step=%v evict=%v bonus=%v",
		shortID(t.ID), g.StepDelay(), g.EvictDelay(), g.CaptureBonusTurn)
}

// Snapshot 当前对局的值拷贝
func (t *Table) Snapshot() *Snapshot {
	return &Snapshot{
		GameID:   t.ID,
		Stage:    t.stage.GetState(),
		Current:  t.active,
		Dice:     t.dice,
		CanRoll:  t.canRoll,
		Selected: t.selected,
		Winner:   t.winner,
		Moves:    t.moves,
		Board:    t.board.Snapshot(),
	}
}

// Restore 从快照恢复对局, 移动序列进行中时拒绝
func (t *Table) Restore(s *Snapshot) error {
	if t.isClosed {
		return codes.ErrTableClosed
	}
	if t.seq != nil {
		return codes.ErrMoveInFlight
	}
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	board := model.NewBoard(t.board.Topology())
	if err := board.Restore(s.Board); err != nil {
		return err
	}
	if s.Winner.Valid() && !board.Finished(s.Winner) {
		return fmt.Errorf("snapshot winner %v has unfinished pieces", s.Winner)
	}
	// 选子阶段必须至少有一颗棋子能走, 否则掷骰闸门关闭后无人能操作
	if s.Stage == StMoving && len(board.Movable(s.Current, s.Dice)) == 0 {
		return fmt.Errorf("snapshot %v has no movable piece for dice %d", s.Current, s.Dice)
	}

	t.ID = s.GameID
	t.board = board
	t.active = s.Current
	t.dice = s.Dice
	t.canRoll = s.CanRoll
	t.selected = s.Selected
	t.winner = s.Winner
	t.moves = s.Moves
	t.updateStage(s.Stage)

	for _, p := range board.Pieces() {
		t.sink.UpdatePiece(p.Player(), p.Index(), p.Pos(), p.Travel())
	}
	if s.Stage == StGameEnd {
		t.pushWinner()
	} else {
		t.pushActivePlayer()
		if s.Stage == StMoving {
			t.pushDice()
		}
	}
	t.mLog.restore(t.Desc())
	log.Infof("[table] restored %s", t.Desc())
	return nil
}

// Close 关闭对局, 正在播放的序列立即快进到结束
func (t *Table) Close() {
	if t.isClosed {
		return
	}
	t.fastForward()
	t.isClosed = true
	t.mLog.end(t.Desc())
	if err := t.mLog.Close(); err != nil {
		log.Warnf("[table] close game log failed: %v", err)
	}
	log.Infof("[table] closed %s", t.Desc())
}

func (t *Table) save() {
	if t.repo == nil {
		return
	}
	t.repo.SaveSnapshot(t.Snapshot())
}

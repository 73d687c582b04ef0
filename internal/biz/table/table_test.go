package table

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/require"

	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/library/work"
	"github.com/yola1107/ludo/pkg/codes"
)

// recordSink 按顺序记录所有输出
type recordSink struct {
	events []string
}

func (s *recordSink) add(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *recordSink) UpdatePiece(p model.PlayerID, index, pos, travel int32) {
	s.add("update %v#%d pos=%d travel=%d", p, index, pos, travel)
}
func (s *recordSink) SetTurn(p model.PlayerID)           { s.add("turn %v", p) }
func (s *recordSink) DisableInput()                      { s.add("disable") }
func (s *recordSink) EnableInput()                       { s.add("enable") }
func (s *recordSink) AnnounceWinner(p model.PlayerID)    { s.add("winner %v", p) }
func (s *recordSink) SignalFireworks(on bool)            { s.add("fireworks %v", on) }
func (s *recordSink) ShowDice(p model.PlayerID, d int32) { s.add("dice %v %d", p, d) }
func (s *recordSink) PlaySound(name Sound)               { s.add("sound %s", name) }
func (s *recordSink) reset()                             { s.events = nil }

func (s *recordSink) count(prefix string) (n int) {
	for _, e := range s.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}
func (s *recordSink) index(event string) int {
	for i, e := range s.events {
		if e == event {
			return i
		}
	}
	return -1
}

// manualTimer 手动推进的定时器, 不依赖真实时间
type manualTimer struct {
	seq       int64
	delays    []time.Duration
	tasks     []manualTask
	cancelled map[int64]bool
	stopped   bool
}

type manualTask struct {
	id int64
	f  func()
}

func newManualTimer() *manualTimer { return &manualTimer{cancelled: map[int64]bool{}} }

func (m *manualTimer) Len() int { return len(m.tasks) }
func (m *manualTimer) Once(delay time.Duration, f func()) int64 {
	if m.stopped {
		return -1
	}
	m.seq++
	m.delays = append(m.delays, delay)
	m.tasks = append(m.tasks, manualTask{id: m.seq, f: f})
	return m.seq
}
func (m *manualTimer) Cancel(id int64) { m.cancelled[id] = true }
func (m *manualTimer) CancelAll()      { m.tasks = nil }
func (m *manualTimer) Stop()           { m.stopped = true }

// tick 执行最早的一个任务, 被取消的任务同样出队但不执行
func (m *manualTimer) tick() bool {
	if len(m.tasks) == 0 {
		return false
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	if !m.cancelled[task.id] {
		task.f()
	}
	return true
}

func (m *manualTimer) flush() {
	for m.tick() {
	}
}

// runStale 忽略取消标记执行剩余任务, 模拟已投递到队列的过期回调
func (m *manualTimer) runStale() {
	for _, task := range m.tasks {
		task.f()
	}
	m.tasks = nil
}

type fakeRepo struct {
	timer *manualTimer
	saved []*Snapshot
}

func (r *fakeRepo) GetTimer() work.Scheduler { return r.timer }
func (r *fakeRepo) SaveSnapshot(s *Snapshot) { r.saved = append(r.saved, s) }

func newTestTable(t *testing.T, game *conf.Game) (*Table, *recordSink, *fakeRepo) {
	t.Helper()
	sink := &recordSink{}
	repo := &fakeRepo{timer: newManualTimer()}
	if game == nil {
		game = conf.DefaultGame()
	}
	tb := NewTable(&conf.Room{Game: game, LogCache: &conf.LogCache{Open: true, Directory: t.TempDir()}}, repo, sink)
	tb.Begin()
	t.Cleanup(tb.Close)
	return tb, sink, repo
}

// boardOf 按 travel 摆放棋子, pos 由拓扑计算
func boardOf(travels map[model.PlayerID][4]int32) model.Snapshot {
	topo := model.DefaultTopology()
	var ps []model.PieceState
	for p := model.Player1; p <= model.Player4; p++ {
		tr := travels[p]
		for i := int32(0); i < model.PiecesPerPlayer; i++ {
			ps = append(ps, model.PieceState{Player: p, Index: i, Pos: topo.PositionAt(p, tr[i]), Travel: tr[i]})
		}
	}
	return model.Snapshot{Pieces: ps}
}

func setup(t *testing.T, tb *Table, sink *recordSink, current model.PlayerID, travels map[model.PlayerID][4]int32) {
	t.Helper()
	require.NoError(t, tb.Restore(&Snapshot{
		GameID:   tb.ID,
		Stage:    StRolling,
		Current:  current,
		CanRoll:  true,
		Selected: -1,
		Board:    boardOf(travels),
	}))
	sink.reset()
}

func requireErr(t *testing.T, err error, target *errors.Error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "got %v, want %v", err, target)
}

func TestTable_Begin(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	require.Equal(t, []string{"turn P1", "enable"}, sink.events)
	require.Equal(t, StRolling, tb.GetStage())
	require.Equal(t, model.Player1, tb.GetActive())
	require.Len(t, repo.saved, 1)
	require.NotEmpty(t, tb.ID)
}

func TestOnRollDice_Rejections(t *testing.T) {
	tb, sink, _ := newTestTable(t, nil)
	sink.reset()

	requireErr(t, tb.OnRollDice(model.Player2, 3), codes.ErrNotYourTurn)
	requireErr(t, tb.OnRollDice(model.Player1, 0), codes.ErrInvalidRoll)
	requireErr(t, tb.OnRollDice(model.Player1, 7), codes.ErrInvalidRoll)
	require.Empty(t, sink.events)
	require.True(t, tb.Snapshot().CanRoll)
	require.Equal(t, StRolling, tb.GetStage())

	require.NoError(t, tb.OnRollDice(model.Player1, 6))
	require.Equal(t, StMoving, tb.GetStage())
	require.Equal(t, []string{"dice P1 6"}, sink.events)
	requireErr(t, tb.OnRollDice(model.Player1, 6), codes.ErrRollLocked)
}

func TestOnRollDice_NoMovablePassesTurn(t *testing.T) {
	tb, sink, _ := newTestTable(t, nil)
	sink.reset()

	require.NoError(t, tb.OnRollDice(model.Player1, 3))
	require.Equal(t, []string{"dice P1 3", "turn P2", "enable"}, sink.events)
	require.Equal(t, model.Player2, tb.GetActive())
	require.Equal(t, StRolling, tb.GetStage())
	requireErr(t, tb.OnRollDice(model.Player1, 6), codes.ErrNotYourTurn)
	require.NoError(t, tb.OnRollDice(model.Player2, 6))
}

func TestOnSelectAndMove_BeforeRoll(t *testing.T) {
	tb, _, _ := newTestTable(t, nil)
	requireErr(t, tb.OnSelectAndMove(model.Player1, 0, 0), codes.ErrNotSelecting)
	requireErr(t, tb.OnSelectAndMove(model.Player3, 0, 0), codes.ErrNotYourTurn)
}

func TestOnSelectAndMove_EnterFromBase(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	require.NoError(t, tb.OnRollDice(model.Player1, 6))
	sink.reset()

	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 0))
	repo.timer.flush()

	require.Equal(t, []string{
		"disable",
		"update P1#0 pos=1 travel=1",
		"sound pile_move",
		"sound safe_spot",
		"turn P1",
		"enable",
	}, sink.events)
	require.Equal(t, model.Player1, tb.GetActive())
	require.Equal(t, StRolling, tb.GetStage())
}

func TestOnSelectAndMove_StepsPaced(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {10}})

	require.NoError(t, tb.OnRollDice(model.Player1, 4))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 10))
	require.Equal(t, 1, sink.count("update"))
	require.True(t, tb.InFlight())

	// 序列进行中, 其他请求全部拒绝
	requireErr(t, tb.OnSelectAndMove(model.Player1, 0, 11), codes.ErrMoveInFlight)
	requireErr(t, tb.OnRollDice(model.Player1, 1), codes.ErrMoveInFlight)
	requireErr(t, tb.OnRollDice(model.Player2, 1), codes.ErrNotYourTurn)

	require.True(t, repo.timer.tick())
	require.Equal(t, 2, sink.count("update"))
	repo.timer.flush()

	var got []string
	for _, e := range sink.events {
		if strings.HasPrefix(e, "update") {
			got = append(got, e)
		}
	}
	require.Equal(t, []string{
		"update P1#0 pos=11 travel=11",
		"update P1#0 pos=12 travel=12",
		"update P1#0 pos=13 travel=13",
		"update P1#0 pos=14 travel=14",
	}, got)
	require.Equal(t, 4, sink.count("sound pile_move"))
	require.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond,
		200 * time.Millisecond, 200 * time.Millisecond}, repo.timer.delays)
	require.False(t, tb.InFlight())
	require.Equal(t, model.Player2, tb.GetActive())
	require.Equal(t, "enable", sink.events[len(sink.events)-1])
}

func TestOnSelectAndMove_MissingPiece(t *testing.T) {
	tb, sink, _ := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {10}})
	require.NoError(t, tb.OnRollDice(model.Player1, 4))
	sink.reset()
	before := tb.Snapshot()

	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 11))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 7, 0))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, -1, 0))
	require.Empty(t, sink.events)
	require.Equal(t, before, tb.Snapshot())
	require.False(t, tb.InFlight())

	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 10))
	require.True(t, tb.InFlight())
}

func TestOnSelectAndMove_Illegal(t *testing.T) {
	tb, sink, _ := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {10, 0, 0, 55}})
	require.NoError(t, tb.OnRollDice(model.Player1, 4))
	sink.reset()
	before := tb.Snapshot()

	err := tb.OnSelectAndMove(model.Player1, 1, 0)
	requireErr(t, err, codes.ErrIllegalMove)
	require.Equal(t, fmt.Sprint(model.ErrIdleMustBeSix), errors.FromError(err).Metadata["code"])

	requireErr(t, tb.OnSelectAndMove(model.Player1, 3, 114), codes.ErrIllegalMove)
	require.Empty(t, sink.events)
	require.Equal(t, before, tb.Snapshot())
	require.Equal(t, StMoving, tb.GetStage())
}

func TestCapture(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{
		model.Player1: {8},
		model.Player2: {0, 0, 0, 49}, // pos 10
	})
	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 8))

	require.True(t, repo.timer.tick())
	require.True(t, repo.timer.tick())
	require.Equal(t, StCapturing, tb.GetStage())
	require.True(t, tb.InFlight())
	repo.timer.flush()

	require.Equal(t, 1, sink.count("sound collide"))
	require.Zero(t, sink.count("sound safe_spot"))
	require.Equal(t, 48, sink.count("update P2#3")-1)
	base := sink.index("update P2#3 pos=0 travel=0")
	require.Greater(t, base, sink.index("sound collide"))
	require.Equal(t, "enable", sink.events[base+1])
	require.Equal(t, []string{"turn P2", "enable"}, sink.events[base+2:])

	var forward, evict int
	for _, d := range repo.timer.delays {
		switch d {
		case 200 * time.Millisecond:
			forward++
		case 50 * time.Millisecond:
			evict++
		}
	}
	require.Equal(t, 2, forward)
	require.Equal(t, 48, evict)

	victim := tb.Board().Piece(model.Player2, 3)
	require.True(t, victim.AtBase())
	require.Equal(t, int32(10), tb.Board().Piece(model.Player1, 0).Pos())
	require.Equal(t, model.Player2, tb.GetActive())
}

func TestCapture_BonusTurn(t *testing.T) {
	tb, sink, repo := newTestTable(t, &conf.Game{StepDelayMs: 200, EvictDelayMs: 50, CaptureBonusTurn: true})
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{
		model.Player1: {8},
		model.Player2: {0, 0, 0, 49},
	})
	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 8))
	repo.timer.flush()

	require.Equal(t, model.Player1, tb.GetActive())
	require.Equal(t, StRolling, tb.GetStage())
}

func TestSafeSpot_NoCapture(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{
		model.Player1: {5},
		model.Player2: {48}, // pos 9, 星点
	})
	require.NoError(t, tb.OnRollDice(model.Player1, 4))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 5))
	repo.timer.flush()

	require.Equal(t, 1, sink.count("sound safe_spot"))
	require.Zero(t, sink.count("sound collide"))
	require.Equal(t, int32(9), tb.Board().Piece(model.Player2, 0).Pos())
	require.Equal(t, model.Player2, tb.GetActive())
}

func TestSixRepeatsTurn(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player3, map[model.PlayerID][4]int32{model.Player3: {10}})
	require.NoError(t, tb.OnRollDice(model.Player3, 6))
	require.NoError(t, tb.OnSelectAndMove(model.Player3, 0, model.DefaultTopology().PositionAt(model.Player3, 10)))
	repo.timer.flush()

	require.Equal(t, model.Player3, tb.GetActive())
	require.True(t, tb.Snapshot().CanRoll)
	require.Equal(t, []string{"turn P3", "enable"}, sink.events[len(sink.events)-2:])
}

func TestArrive_Fireworks(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {55}})
	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 114))
	repo.timer.flush()

	require.True(t, tb.Board().Piece(model.Player1, 0).Finished())
	require.Equal(t, []string{"sound home_win", "fireworks true", "turn P1", "enable"}, sink.events[len(sink.events)-4:])
	require.Equal(t, model.Player1, tb.GetActive())
	require.Zero(t, tb.GetWinner())
}

func TestWin(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {57, 57, 57, 55}})
	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 3, 114))
	repo.timer.flush()

	require.Equal(t, []string{"sound home_win", "winner P1", "sound cheer", "enable"}, sink.events[len(sink.events)-4:])
	require.Zero(t, sink.count("fireworks"))
	require.Equal(t, StGameEnd, tb.GetStage())
	require.Equal(t, model.Player1, tb.GetWinner())

	sink.reset()
	before := tb.Snapshot()
	requireErr(t, tb.OnRollDice(model.Player1, 3), codes.ErrGameOver)
	requireErr(t, tb.OnRollDice(model.Player2, 3), codes.ErrGameOver)
	requireErr(t, tb.OnSelectAndMove(model.Player1, 0, 116), codes.ErrGameOver)
	require.Empty(t, sink.events)
	require.Equal(t, before, tb.Snapshot())
	require.Equal(t, StGameEnd, repo.saved[len(repo.saved)-1].Stage)
}

func TestWin_OnlyWithAllFour(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player2, map[model.PlayerID][4]int32{model.Player2: {57, 57, 50, 51}})
	require.NoError(t, tb.OnRollDice(model.Player2, 6))
	require.NoError(t, tb.OnSelectAndMove(model.Player2, 3, model.DefaultTopology().PositionAt(model.Player2, 51)))
	repo.timer.flush()

	require.Equal(t, int32(57), tb.Board().Piece(model.Player2, 3).Travel())
	require.Zero(t, tb.GetWinner())
	require.Equal(t, StRolling, tb.GetStage())
	require.Equal(t, model.Player2, tb.GetActive())
}

func TestClose_FastForward(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{
		model.Player1: {8},
		model.Player2: {0, 0, 0, 49},
	})
	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 8))
	require.Equal(t, 1, sink.count("update"))

	tb.Close()
	require.True(t, tb.IsClosed())
	require.False(t, tb.InFlight())
	require.True(t, tb.Board().Piece(model.Player2, 3).AtBase())
	require.Equal(t, int32(10), tb.Board().Piece(model.Player1, 0).Pos())
	require.Equal(t, model.Player2, tb.GetActive())
	n := len(sink.events)

	// 已取消的定时回调即使被执行也不会再推进
	repo.timer.runStale()
	require.Len(t, sink.events, n)

	requireErr(t, tb.OnRollDice(model.Player2, 3), codes.ErrTableClosed)
	requireErr(t, tb.Restore(tb.Snapshot()), codes.ErrTableClosed)
}

func TestSetGameConfig_NoDelay(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	tb.SetGameConfig(&conf.Game{})
	require.Equal(t, conf.Game{}, tb.GameConfig())
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {8}, model.Player2: {0, 0, 0, 49}})

	require.NoError(t, tb.OnRollDice(model.Player1, 2))
	require.NoError(t, tb.OnSelectAndMove(model.Player1, 0, 8))
	require.False(t, tb.InFlight())
	require.Empty(t, repo.timer.delays)
	require.True(t, tb.Board().Piece(model.Player2, 3).AtBase())
}

func TestSnapshotRestore(t *testing.T) {
	tb, sink, repo := newTestTable(t, nil)
	setup(t, tb, sink, model.Player1, map[model.PlayerID][4]int32{model.Player1: {10}, model.Player3: {20, 57}})
	require.NoError(t, tb.OnRollDice(model.Player1, 3))
	snap := tb.Snapshot()
	require.Equal(t, StMoving, snap.Stage)
	require.Equal(t, snap, repo.saved[len(repo.saved)-1])

	other, otherSink, _ := newTestTable(t, nil)
	otherSink.reset()
	require.NoError(t, other.Restore(snap))
	require.Equal(t, snap, other.Snapshot())
	require.Equal(t, tb.ID, other.ID)
	require.Equal(t, 16, otherSink.count("update"))
	require.Equal(t, []string{"turn P1", "enable", "dice P1 3"}, otherSink.events[16:])

	// 恢复后可以继续走
	require.NoError(t, other.OnSelectAndMove(model.Player1, 0, 10))
	requireErr(t, other.Restore(snap), codes.ErrMoveInFlight)
}

func TestRestore_Rejects(t *testing.T) {
	tb, sink, _ := newTestTable(t, nil)
	sink.reset()
	good := tb.Snapshot()
	before := tb.Snapshot()

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"nil id", func(s *Snapshot) { s.GameID = "" }},
		{"bad player", func(s *Snapshot) { s.Current = 5 }},
		{"mid sequence", func(s *Snapshot) { s.Stage = StCapturing }},
		{"rolling with dice", func(s *Snapshot) { s.Dice = 3 }},
		{"moving without dice", func(s *Snapshot) { s.Stage, s.CanRoll = StMoving, false }},
		{"moving with nothing movable", func(s *Snapshot) { s.Stage, s.CanRoll, s.Dice = StMoving, false, 3 }},
		{"winner unfinished", func(s *Snapshot) { s.Stage, s.Winner, s.CanRoll = StGameEnd, model.Player1, false }},
		{"winner while playing", func(s *Snapshot) { s.Winner = model.Player2 }},
		{"inconsistent board", func(s *Snapshot) { s.Board.Pieces[0].Pos = 50 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *good
			s.Board = model.Snapshot{Pieces: append([]model.PieceState(nil), good.Board.Pieces...)}
			tt.mutate(&s)
			require.Error(t, tb.Restore(&s))
			require.Equal(t, before, tb.Snapshot())
		})
	}
	require.Error(t, tb.Restore(nil))
	require.Empty(t, sink.events)
}

// 随机完整对局: 每次移动前进步数等于点数, 只有四颗全部到终点才能获胜
func TestRandomGame(t *testing.T) {
	tb, sink, _ := newTestTable(t, &conf.Game{})
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 20000 && tb.GetWinner() == 0; i++ {
		p := tb.GetActive()
		dice := int32(r.Intn(6) + 1)
		require.NoError(t, tb.OnRollDice(p, dice))
		if tb.GetStage() != StMoving {
			continue
		}
		ids := tb.Board().Movable(p, dice)
		require.NotEmpty(t, ids)
		piece := tb.Board().Piece(p, ids[r.Intn(len(ids))])
		fromTravel := piece.Travel()

		sink.reset()
		require.NoError(t, tb.OnSelectAndMove(p, piece.Index(), piece.Pos()))
		want := int(dice)
		if fromTravel == 0 {
			want = 1
		}
		require.Equal(t, want, sink.count(fmt.Sprintf("update %v#%d ", p, piece.Index())))
		require.Equal(t, want, sink.count("sound pile_move"))
		require.GreaterOrEqual(t, piece.Travel(), fromTravel)
		require.Equal(t, tb.Board().Finished(p), tb.GetWinner() == p)
		require.Equal(t, "enable", sink.events[len(sink.events)-1])
	}
	w := tb.GetWinner()
	require.True(t, w.Valid())
	require.True(t, tb.Board().Finished(w))
	require.Equal(t, StGameEnd, tb.GetStage())
}

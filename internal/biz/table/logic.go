package table

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/internal/model"
)

/*
	游戏主逻辑

	一次移动: 前进逐格播放 -> 落点结算(安全点/吃子) -> 被吃棋子逐格倒退 -> 回合切换
	每一步都在串行队列中执行, 下一步由定时器投递回队列, 所以第 i 步一定在第 i+1 步之前完成
*/

// sequence 正在播放的一次移动
type sequence struct {
	player   model.PlayerID
	dice     int32
	walk     *model.Walk
	evict    *model.Eviction
	captured bool
	tick     int64  // 每次调度自增, 过期的定时回调据此丢弃
	timerID  int64  //
	pending  func() // 等待中的下一步
}

func (t *Table) updateStage(state StageID) {
	t.stage.Set(state)
	t.mLog.stage(t.stage.Desc(), t.active)
}

// 开始播放移动序列
func (t *Table) startMove(walk *model.Walk) {
	t.seq = &sequence{player: walk.Piece().Player(), dice: t.dice, walk: walk}
	t.sink.DisableInput()
	t.playForward()
}

// 逐格前进, 每格之后等待 step_delay
func (t *Table) playForward() {
	step, ok := t.seq.walk.Next()
	if !ok {
		t.onLanded()
		return
	}
	t.pushStep(step)
	t.schedule(t.game.StepDelay(), t.playForward)
}

// 最后一步之后结算落点
func (t *Table) onLanded() {
	s := t.seq
	mover := s.walk.Piece()
	landing := t.board.Resolve(mover)
	if landing.Immune {
		t.sink.PlaySound(SoundSafeSpot)
	}
	if !landing.Captured() {
		t.onMoveDone()
		return
	}

	victim := landing.Eviction.Victim()
	s.evict = landing.Eviction
	s.captured = true
	t.updateStage(StCapturing)
	t.sink.PlaySound(SoundCollide)
	t.mLog.capture(mover, victim)
	log.Debugf("[capture] %v eats %v at %d", mover.Desc(), victim.Desc(), landing.Pos)
	t.playEvict()
}

// 被吃棋子逐格倒退, 最后一步回到基地后立即打开输入
func (t *Table) playEvict() {
	step, ok := t.seq.evict.Next()
	if !ok {
		t.onMoveDone()
		return
	}
	t.pushStep(step)
	if step.Kind == model.StepBase {
		t.sink.EnableInput()
		t.playEvict()
		return
	}
	t.schedule(t.game.EvictDelay(), t.playEvict)
}

// 回合控制
func (t *Table) onMoveDone() {
	s := t.seq
	t.seq = nil
	t.ff = false
	t.moves++
	t.selected = -1

	piece := s.walk.Piece()
	arrived := piece.Finished() // 棋子是否到达终点
	t.updateStage(StTurnEnd)
	t.mLog.settled(piece, s.captured, arrived)

	switch {
	case s.dice == model.EnterDice || arrived:
		if arrived {
			t.sink.PlaySound(SoundHomeWin)
			log.Debugf("===> 棋子进入终点. p=%v, piece=%v, finished=%d", s.player, piece.Desc(), t.board.FinishedCount(s.player))
			if t.board.Finished(s.player) {
				t.gameOver(s.player)
				return
			}
			t.sink.SignalFireworks(true)
		}
		// 奖励再掷一次骰子
		t.repeatPlayerTurn(s.player)
	case s.captured && t.game.CaptureBonusTurn:
		// 吃子奖励
		t.repeatPlayerTurn(s.player)
	default:
		t.endPlayerTurn(s.player)
	}
	t.save()
}

// 设置玩家为当前行动者，并切换至“掷骰”阶段（奖励回合）
func (t *Table) repeatPlayerTurn(p model.PlayerID) {
	t.active = p
	t.openRoll()
}

// 玩家回合结束，切换至下一玩家掷骰
func (t *Table) endPlayerTurn(p model.PlayerID) {
	t.active = p.Next()
	t.openRoll()
}

func (t *Table) openRoll() {
	t.dice = 0
	t.canRoll = true
	t.updateStage(StRolling)
	t.pushActivePlayer()
	t.mLog.turn(t.active)
}

// 四颗棋子全部到达终点, 对局结束, 之后的请求全部拒绝
func (t *Table) gameOver(p model.PlayerID) {
	t.winner = p
	t.dice = 0
	t.canRoll = false
	t.updateStage(StGameEnd)
	t.pushWinner()
	t.mLog.winner(p, t.moves)
	log.Infof("******** <游戏结束> winner=%v %s", p, t.Desc())
	t.save()
}

// schedule 延迟执行序列的下一步
//
// 定时回调经 Repo 的定时器投递回串行队列; 快进或定时器已关闭时直接执行
func (t *Table) schedule(delay time.Duration, next func()) {
	s := t.seq
	s.tick++
	tick := s.tick
	run := func() {
		if t.seq != s || s.tick != tick {
			return // 已快进或序列已结束
		}
		s.pending = nil
		next()
	}
	if t.ff || delay <= 0 || t.repo == nil {
		run()
		return
	}
	s.pending = run
	if s.timerID = t.repo.GetTimer().Once(delay, run); s.timerID < 0 {
		run()
	}
}

// fastForward 取消等待中的定时器, 剩余步骤立即执行完
func (t *Table) fastForward() {
	s := t.seq
	if s == nil {
		return
	}
	t.ff = true
	if s.pending == nil {
		return
	}
	if t.repo != nil {
		t.repo.GetTimer().Cancel(s.timerID)
	}
	s.pending()
}

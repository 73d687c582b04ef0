package model

import "github.com/samber/lo"

// Landing 一次移动落定后的结算结果
type Landing struct {
	Pos      int32
	Immune   bool      // 落在安全点或星点
	Eviction *Eviction // 没有吃子时为 nil
}

// Captured 是否发生吃子
func (l Landing) Captured() bool { return l.Eviction != nil }

// Resolve 在最后一步之后检查落点
//
// 格子上有不同玩家且不是安全点/星点时, 按扫描顺序取第一颗敌方棋子送回基地
func (b *Board) Resolve(mover *Piece) Landing {
	l := Landing{Pos: mover.pos, Immune: b.topo.Immune(mover.pos)}
	if l.Immune || mover.pos == BasePos {
		return l
	}
	here := b.PiecesAt(mover.pos)
	players := lo.Uniq(lo.Map(here, func(p *Piece, _ int) PlayerID { return p.player }))
	if len(players) < 2 {
		return l
	}
	victim, ok := lo.Find(here, mover.IsEnemy)
	if !ok {
		return l
	}
	l.Eviction = newEviction(b, victim)
	return l
}

type evictPhase int32

const (
	evictFirst evictPhase = iota
	evictWalk
	evictBase
	evictDone
)

// Eviction 被吃棋子倒退回基地的逐步迭代器
//
// 第一步在原位置把 travel 置 0, 之后每步后退一格 (0 回绕到 52), 到起点前停止, 最后回到基地 pos=0 travel=0
type Eviction struct {
	board  *Board
	victim *Piece
	phase  evictPhase
}

func newEviction(b *Board, victim *Piece) *Eviction {
	return &Eviction{board: b, victim: victim}
}

func (e *Eviction) Victim() *Piece { return e.victim }
func (e *Eviction) Done() bool     { return e.phase == evictDone }

// Next 执行下一步, 结束后返回 false
func (e *Eviction) Next() (Step, bool) {
	v := e.victim
	start := e.board.topo.StartingPoint(v.player)
	switch e.phase {
	case evictFirst:
		if v.pos == start {
			e.phase = evictBase
			return e.Next()
		}
		v.set(v.pos, 0)
		e.phase = evictWalk
		return stepOf(StepEvict, v), true
	case evictWalk:
		pos := v.pos - 1
		if pos == 0 {
			pos = LoopLength
		}
		if pos == start {
			e.phase = evictBase
			return e.Next()
		}
		v.set(pos, 0)
		return stepOf(StepEvict, v), true
	case evictBase:
		v.set(BasePos, 0)
		e.phase = evictDone
		return stepOf(StepBase, v), true
	default:
		return Step{}, false
	}
}

// Drain 执行剩余全部步数
func (e *Eviction) Drain() []Step {
	var steps []Step
	for s, ok := e.Next(); ok; s, ok = e.Next() {
		steps = append(steps, s)
	}
	return steps
}

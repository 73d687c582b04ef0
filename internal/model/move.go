package model

const (
	MoveOK             int32 = iota // 移动合法，无错误
	ErrInvalidPlayer                // 玩家编号无效
	ErrInvalidPieceIdx              // 棋子索引无效（越界）
	ErrInvalidStep                  // 非法步数（不在 1..6）
	ErrIdleMustBeSix                // 基地棋子只能掷出 6 才能出发
	ErrExceedHomePath               // 超出终点路径，无法移动
	ErrAlreadyArrived               // 棋子已到达终点，不能再移动
)

var moveCodeText = map[int32]string{
	MoveOK:             "ok",
	ErrInvalidPlayer:   "invalid player",
	ErrInvalidPieceIdx: "invalid piece index",
	ErrInvalidStep:     "invalid step",
	ErrIdleMustBeSix:   "piece at base needs a six",
	ErrExceedHomePath:  "move overshoots the home path",
	ErrAlreadyArrived:  "piece already arrived",
}

// MoveCodeText 错误码描述
func MoveCodeText(code int32) string {
	if s, ok := moveCodeText[code]; ok {
		return s
	}
	return "unknown"
}

// CanMove 判断玩家的棋子能否走 dice 步，返回能否移动及错误码
func (b *Board) CanMove(player PlayerID, index, dice int32) (bool, int32) {
	if !player.Valid() {
		return false, ErrInvalidPlayer
	}
	p := b.Piece(player, index)
	if p == nil {
		return false, ErrInvalidPieceIdx
	}
	if dice < MinDice || dice > MaxDice {
		return false, ErrInvalidStep
	}
	switch {
	case p.Finished():
		return false, ErrAlreadyArrived
	case p.AtBase():
		if dice != EnterDice {
			return false, ErrIdleMustBeSix
		}
	case p.travel+dice > FinishTravel:
		return false, ErrExceedHomePath
	}
	return true, MoveOK
}

// Movable 能使用本次点数的棋子索引
func (b *Board) Movable(player PlayerID, dice int32) []int32 {
	var ids []int32
	for _, p := range b.PlayerPieces(player) {
		if ok, _ := b.CanMove(player, p.index, dice); ok {
			ids = append(ids, p.index)
		}
	}
	return ids
}

// StepForward 前进一格后的位置
//
// 到达拐点且 travel>51 时进入终点路径; 越过 52 且未到终点路径时回到 1; 终点路径内不回绕
func (t *Topology) StepForward(player PlayerID, pos, travel int32) (int32, int32) {
	pos++
	travel++
	if pos == t.TurningPoint(player) && travel > LoopLength-1 {
		pos = t.VictoryStart(player)
	} else if pos > LoopLength && pos < t.VictoryStart(player) {
		pos = 1
	}
	return pos, travel
}

// Walk 一次移动的逐步迭代器, 每次 Next 修改棋盘并返回该步
type Walk struct {
	board     *Board
	piece     *Piece
	remaining int32
	enter     bool
}

// Forward 校验后返回移动迭代器; 校验失败返回 nil 和错误码, 棋盘不变
//
// 基地棋子用 6 出发, 只产生一步 StepEnter 落在起点 travel=1
func (b *Board) Forward(player PlayerID, index, dice int32) (*Walk, int32) {
	if ok, code := b.CanMove(player, index, dice); !ok {
		return nil, code
	}
	p := b.Piece(player, index)
	w := &Walk{board: b, piece: p, remaining: dice}
	if p.AtBase() {
		w.enter = true
		w.remaining = 1
	}
	return w, MoveOK
}

func (w *Walk) Piece() *Piece    { return w.piece }
func (w *Walk) Remaining() int32 { return w.remaining }
func (w *Walk) Done() bool       { return w.remaining <= 0 }

// Next 执行下一步, 没有剩余步数时返回 false
func (w *Walk) Next() (Step, bool) {
	if w.remaining <= 0 {
		return Step{}, false
	}
	w.remaining--
	p := w.piece
	if w.enter {
		w.enter = false
		p.set(w.board.topo.StartingPoint(p.player), 1)
		return stepOf(StepEnter, p), true
	}
	p.set(w.board.topo.StepForward(p.player, p.pos, p.travel))
	return stepOf(StepForward, p), true
}

// Drain 执行剩余全部步数
func (w *Walk) Drain() []Step {
	var steps []Step
	for s, ok := w.Next(); ok; s, ok = w.Next() {
		steps = append(steps, s)
	}
	return steps
}

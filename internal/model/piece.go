package model

import "fmt"

// Piece 一颗棋子, 只读访问; 位置由移动引擎和吃子结算修改
type Piece struct {
	player PlayerID
	index  int32
	pos    int32 // 0=基地 1..52=公共环路 victoryStart..+5=终点路径
	travel int32 // 出基地后累计前进的格数 0..57
}

func newPiece(player PlayerID, index int32) *Piece {
	return &Piece{player: player, index: index, pos: BasePos}
}

func (p *Piece) Desc() string {
	return fmt.Sprintf("[%v#%d pos:%d travel:%d]", p.player, p.index, p.pos, p.travel)
}

func (p *Piece) Player() PlayerID { return p.player }
func (p *Piece) Index() int32     { return p.index }
func (p *Piece) Pos() int32       { return p.pos }
func (p *Piece) Travel() int32    { return p.travel }
func (p *Piece) AtBase() bool     { return p.travel == 0 && p.pos == BasePos }
func (p *Piece) Finished() bool   { return p.travel == FinishTravel }

// IsEnemy 是否属于不同玩家
func (p *Piece) IsEnemy(o *Piece) bool { return p.player != o.player }

func (p *Piece) Clone() *Piece {
	cp := *p
	return &cp
}

func (p *Piece) set(pos, travel int32) {
	p.pos = pos
	p.travel = travel
}

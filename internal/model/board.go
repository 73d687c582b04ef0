package model

import (
	"fmt"

	"github.com/samber/lo"
)

// Board 棋盘, 持有 4 个玩家各 4 颗棋子
//
// 扫描顺序固定为 玩家 1..4, 棋子 0..3, 吃子选目标时按此顺序取第一个
type Board struct {
	topo   *Topology
	pieces [PlayerCount][PiecesPerPlayer]*Piece
}

// NewBoard 所有棋子在基地 pos=0 travel=0, topo 为 nil 时使用标准棋盘
func NewBoard(topo *Topology) *Board {
	if topo == nil {
		topo = DefaultTopology()
	}
	b := &Board{topo: topo}
	for i := 0; i < PlayerCount; i++ {
		for j := 0; j < PiecesPerPlayer; j++ {
			b.pieces[i][j] = newPiece(PlayerID(i+1), int32(j))
		}
	}
	return b
}

func (b *Board) Topology() *Topology { return b.topo }

// Piece 找不到返回 nil
func (b *Board) Piece(player PlayerID, index int32) *Piece {
	if !player.Valid() || index < 0 || index >= PiecesPerPlayer {
		return nil
	}
	return b.pieces[player-1][index]
}

// Pieces 按扫描顺序返回全部棋子
func (b *Board) Pieces() []*Piece {
	all := make([]*Piece, 0, PlayerCount*PiecesPerPlayer)
	for i := range b.pieces {
		all = append(all, b.pieces[i][:]...)
	}
	return all
}

// PlayerPieces 玩家的 4 颗棋子
func (b *Board) PlayerPieces(player PlayerID) []*Piece {
	if !player.Valid() {
		return nil
	}
	return append([]*Piece(nil), b.pieces[player-1][:]...)
}

// PiecesAt 位于 pos 的棋子, 按扫描顺序; 基地不算占位
func (b *Board) PiecesAt(pos int32) []*Piece {
	if pos == BasePos {
		return nil
	}
	return lo.Filter(b.Pieces(), func(p *Piece, _ int) bool { return p.pos == pos })
}

// Finished 玩家 4 颗棋子全部 travel=57
func (b *Board) Finished(player PlayerID) bool {
	if !player.Valid() {
		return false
	}
	return lo.EveryBy(b.pieces[player-1][:], (*Piece).Finished)
}

// FinishedCount 已到终点的棋子数
func (b *Board) FinishedCount(player PlayerID) int {
	if !player.Valid() {
		return 0
	}
	return lo.CountBy(b.pieces[player-1][:], (*Piece).Finished)
}

// Clone 深拷贝, 拓扑共享
func (b *Board) Clone() *Board {
	c := &Board{topo: b.topo}
	for i := range b.pieces {
		for j, p := range b.pieces[i] {
			c.pieces[i][j] = p.Clone()
		}
	}
	return c
}

// PieceState 棋子快照
type PieceState struct {
	Player PlayerID `json:"player" yaml:"player"`
	Index  int32    `json:"index" yaml:"index"`
	Pos    int32    `json:"pos" yaml:"pos"`
	Travel int32    `json:"travel" yaml:"travel"`
}

// Snapshot 棋盘快照, 值拷贝, 与棋盘后续变化无关
type Snapshot struct {
	Pieces []PieceState `json:"pieces" yaml:"pieces"`
}

func (b *Board) Snapshot() Snapshot {
	return Snapshot{Pieces: lo.Map(b.Pieces(), func(p *Piece, _ int) PieceState {
		return PieceState{Player: p.player, Index: p.index, Pos: p.pos, Travel: p.travel}
	})}
}

// Restore 用快照覆盖棋盘
//
// 每颗棋子必须恰好出现一次, 且 pos 必须等于 PositionAt(travel); 校验失败时棋盘不变
func (b *Board) Restore(s Snapshot) error {
	if len(s.Pieces) != PlayerCount*PiecesPerPlayer {
		return fmt.Errorf("snapshot has %d pieces, want %d", len(s.Pieces), PlayerCount*PiecesPerPlayer)
	}
	var seen [PlayerCount][PiecesPerPlayer]bool
	for _, ps := range s.Pieces {
		if !ps.Player.Valid() || ps.Index < 0 || ps.Index >= PiecesPerPlayer {
			return fmt.Errorf("snapshot piece %v#%d out of range", ps.Player, ps.Index)
		}
		if seen[ps.Player-1][ps.Index] {
			return fmt.Errorf("snapshot piece %v#%d duplicated", ps.Player, ps.Index)
		}
		seen[ps.Player-1][ps.Index] = true
		if ps.Travel < 0 || ps.Travel > FinishTravel {
			return fmt.Errorf("snapshot piece %v#%d travel %d out of range", ps.Player, ps.Index, ps.Travel)
		}
		if want := b.topo.PositionAt(ps.Player, ps.Travel); want != ps.Pos {
			return fmt.Errorf("snapshot piece %v#%d at %d, travel %d maps to %d",
				ps.Player, ps.Index, ps.Pos, ps.Travel, want)
		}
	}
	for _, ps := range s.Pieces {
		b.pieces[ps.Player-1][ps.Index].set(ps.Pos, ps.Travel)
	}
	return nil
}


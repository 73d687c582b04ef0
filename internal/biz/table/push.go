package table

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/internal/model"
)

// Sound 音效触发名, 没有负载
type Sound string

const (
	SoundPileMove Sound = "pile_move"
	SoundSafeSpot Sound = "safe_spot"
	SoundCollide  Sound = "collide"
	SoundHomeWin  Sound = "home_win"
	SoundCheer    Sound = "cheer"
)

// Sink 渲染层/音效层, 只接收命令, 不修改对局状态
type Sink interface {
	UpdatePiece(player model.PlayerID, index, pos, travel int32)
	SetTurn(player model.PlayerID)
	DisableInput()
	EnableInput()
	AnnounceWinner(player model.PlayerID)
	SignalFireworks(on bool)
	ShowDice(player model.PlayerID, dice int32)
	PlaySound(name Sound)
}

// NopSink 丢弃所有输出
type NopSink struct{}

func (NopSink) UpdatePiece(model.PlayerID, int32, int32, int32) {}
func (NopSink) SetTurn(model.PlayerID)                          {}
func (NopSink) DisableInput()                                   {}
func (NopSink) EnableInput()                                    {}
func (NopSink) AnnounceWinner(model.PlayerID)                   {}
func (NopSink) SignalFireworks(bool)                            {}
func (NopSink) ShowDice(model.PlayerID, int32)                  {}
func (NopSink) PlaySound(Sound)                                 {}

func (t *Table) pushStep(s model.Step) {
	t.sink.UpdatePiece(s.Player, s.Index, s.Pos, s.Travel)
	if s.Kind == model.StepForward || s.Kind == model.StepEnter {
		t.sink.PlaySound(SoundPileMove)
	}
	log.Debugf("[step] %v %v#%d pos=%d travel=%d", s.Kind, s.Player, s.Index, s.Pos, s.Travel)
}

// 广播当前行动玩家, 重新打开输入
func (t *Table) pushActivePlayer() {
	t.sink.SetTurn(t.active)
	t.sink.EnableInput()
}

func (t *Table) pushDice() {
	t.sink.ShowDice(t.active, t.dice)
}

func (t *Table) pushWinner() {
	t.sink.AnnounceWinner(t.winner)
	t.sink.PlaySound(SoundCheer)
	t.sink.EnableInput()
}

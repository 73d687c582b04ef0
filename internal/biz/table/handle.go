package table

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/pkg/codes"
)

// OnRollDice 玩家掷骰, dice 由调用方生成
func (t *Table) OnRollDice(p model.PlayerID, dice int32) error {
	if err := t.checkActive(p); err != nil {
		return err
	}
	if t.seq != nil {
		return codes.ErrMoveInFlight
	}
	if !t.canRoll || t.stage.GetState() != StRolling {
		return codes.ErrRollLocked
	}
	if dice < model.MinDice || dice > model.MaxDice {
		log.Warnf("OnRollDice rejected: invalid dice. p=%v dice=%d", p, dice)
		return codes.ErrInvalidRoll.WithMetadata(map[string]string{"dice": fmt.Sprint(dice)})
	}

	// 执行掷骰逻辑
	t.dice = dice
	t.canRoll = false
	t.pushDice()

	movable := t.board.Movable(p, dice) // 可以使用本次点数的棋子
	t.mLog.dice(p, dice, movable)
	log.Debugf("OnRollDice: p=%v, dice=%d, movable=%v", p, dice, movable)

	if len(movable) == 0 {
		// 无法移动，直接结束本轮
		t.updateStage(StTurnEnd)
		t.endPlayerTurn(p)
		t.save()
		return nil
	}

	// 允许进入移动阶段
	t.updateStage(StMoving)
	t.save()
	return nil
}

// OnSelectAndMove 玩家选择 cell 上的棋子走本回合点数
//
// 棋子不存在或不在 cell 上时静默忽略, 只记录日志
func (t *Table) OnSelectAndMove(p model.PlayerID, index, cell int32) error {
	if err := t.checkActive(p); err != nil {
		return err
	}
	if t.seq != nil {
		return codes.ErrMoveInFlight
	}
	if t.stage.GetState() != StMoving {
		return codes.ErrNotSelecting
	}

	piece := t.board.Piece(p, index)
	if piece == nil || piece.Pos() != cell {
		t.mLog.missing(p, index, cell)
		log.Warnf("OnSelectAndMove: no piece found, move aborted. p=%v index=%d cell=%d", p, index, cell)
		return nil
	}
	if ok, code := t.board.CanMove(p, index, t.dice); !ok {
		log.Errorf("OnSelectAndMove failed: move not allowed. p=%v index=%d dice=%d code=%d(%s)",
			p, index, t.dice, code, model.MoveCodeText(code))
		return codes.ErrIllegalMove.WithMetadata(map[string]string{
			"code":   fmt.Sprint(code),
			"reason": model.MoveCodeText(code),
		})
	}

	walk, _ := t.board.Forward(p, index, t.dice)
	t.selected = index
	t.mLog.move(p, piece, t.dice)
	log.Debugf("OnSelectAndMove. p=%v piece=%v dice=%d", p, piece.Desc(), t.dice)

	t.startMove(walk)
	return nil
}

func (t *Table) checkActive(p model.PlayerID) error {
	if t.isClosed {
		return codes.ErrTableClosed
	}
	if t.stage.GetState() == StGameEnd {
		return codes.ErrGameOver
	}
	if p != t.active {
		return codes.ErrNotYourTurn
	}
	return nil
}

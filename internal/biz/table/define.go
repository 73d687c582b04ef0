package table

import (
	"fmt"
	"sync"
	"time"

	"github.com/yola1107/ludo/internal/model"
)

/*

	StageID 游戏阶段ID
*/

type StageID int32

const (
	StRolling   StageID = iota // 等待掷骰
	StMoving                   // 已掷骰, 选子并逐格移动
	StCapturing                // 被吃棋子倒退回基地
	StTurnEnd                  // 回合结算
	StGameEnd                  // 游戏结束
)

// StageNames maps each stage to its string name.
var StageNames = map[StageID]string{
	StRolling:   "StRolling",
	StMoving:    "StMoving",
	StCapturing: "StCapturing",
	StTurnEnd:   "StTurnEnd",
	StGameEnd:   "StGameEnd",
}

// String returns the string representation of the StageID.
func (s StageID) String() string {
	if name, ok := StageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("StageID(%d)", s)
}

/*
Stage 游戏状态封装, 读者可在任意协程读取
*/

type Stage struct {
	mu      sync.RWMutex
	State   StageID
	Prev    StageID
	StartAt time.Time
}

func (s *Stage) GetState() StageID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

func (s *Stage) Snap() (StageID, StageID, time.Time) {
	s.mu.RLock()
	prev, state, at := s.Prev, s.State, s.StartAt
	s.mu.RUnlock()
	return prev, state, at
}

func (s *Stage) Desc() string {
	prev, state, _ := s.Snap()
	return fmt.Sprintf("[%v->%v, %v -> %v]", int32(prev), int32(state), prev, state)
}

func (s *Stage) Set(state StageID) {
	s.mu.Lock() // 写锁
	defer s.mu.Unlock()
	s.Prev = s.State
	s.State = state
	s.StartAt = time.Now()
}

// Snapshot 对局快照: 棋盘 + 回合状态
type Snapshot struct {
	GameID   string         `json:"game_id" yaml:"game_id"`
	Stage    StageID        `json:"stage" yaml:"stage"`
	Current  model.PlayerID `json:"current" yaml:"current"`
	Dice     int32          `json:"dice" yaml:"dice"`
	CanRoll  bool           `json:"can_roll" yaml:"can_roll"`
	Selected int32          `json:"selected" yaml:"selected"` // -1 表示未选子
	Winner   model.PlayerID `json:"winner" yaml:"winner"`     // 0 表示未决出
	Moves    int32          `json:"moves" yaml:"moves"`
	Board    model.Snapshot `json:"board" yaml:"board"`
}

// Validate 快照只能处于稳定阶段: 等待掷骰, 等待选子, 或已结束
func (s *Snapshot) Validate() error {
	if s.GameID == "" {
		return fmt.Errorf("snapshot without game id")
	}
	if !s.Current.Valid() {
		return fmt.Errorf("snapshot current player %d invalid", s.Current)
	}
	switch s.Stage {
	case StRolling:
		if !s.CanRoll || s.Dice != 0 {
			return fmt.Errorf("rolling snapshot must have an open gate and no dice")
		}
	case StMoving:
		if s.CanRoll || s.Dice < model.MinDice || s.Dice > model.MaxDice {
			return fmt.Errorf("moving snapshot must hold a rolled dice, got %d", s.Dice)
		}
	case StGameEnd:
		if !s.Winner.Valid() {
			return fmt.Errorf("finished snapshot without winner")
		}
	default:
		return fmt.Errorf("snapshot taken mid-sequence at %v", s.Stage)
	}
	if s.Stage != StGameEnd && s.Winner != 0 {
		return fmt.Errorf("snapshot has winner %v but stage %v", s.Winner, s.Stage)
	}
	return nil
}

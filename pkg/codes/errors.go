package codes

import (
	"github.com/go-kratos/kratos/v2/errors"
)

var (
	ErrNotYourTurn  = errors.New(2, "NOT_YOUR_TURN", "not your turn")
	ErrRollLocked   = errors.New(3, "ROLL_LOCKED", "dice is locked")
	ErrMoveInFlight = errors.New(4, "MOVE_IN_FLIGHT", "another move is in flight")
	ErrInvalidRoll  = errors.New(5, "INVALID_ROLL", "dice value out of range")
	ErrIllegalMove  = errors.New(6, "ILLEGAL_MOVE", "illegal move")
	ErrGameOver     = errors.New(7, "GAME_OVER", "game is over")
	ErrTableClosed  = errors.New(8, "TABLE_CLOSED", "table closed")
	ErrNotSelecting = errors.New(9, "NOT_SELECTING", "roll the dice first")
	ErrNoGame       = errors.New(10, "NO_GAME", "no game in progress")
	ErrNotFound     = errors.New(11, "NOT_FOUND", "saved game not found")
)

package table

import (
	"fmt"
	"path/filepath"

	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/library/log/file"
	"github.com/yola1107/ludo/library/xgo"
)

const (
	LogFileName = "game_%s.log"
)

// Log 对局日志, room.log_cache.open 关闭时不写
type Log struct {
	c      conf.LogCache
	gameID string
	logger *file.Log
}

func NewTableLog(gameID string, c *conf.LogCache) *Log {
	l := &Log{gameID: gameID}
	if c != nil {
		l.c = *c
	}
	dir := l.c.Directory
	if dir == "" {
		dir = "./logs/games"
	}
	l.logger = file.NewFileLog(filepath.Join(dir, fmt.Sprintf(LogFileName, gameID)))
	return l
}

func (l *Log) Close() error {
	return l.logger.Close()
}

// write 写入到对局日志文件
func (l *Log) write(msg string, args ...any) {
	if !l.c.Open {
		return
	}
	l.logger.WriteLog(msg, args...)
}

func (l *Log) begin(tb string) {
	l.write("[game begin] %s", tb)
}

func (l *Log) restore(tb string) {
	l.write("[game restore] %s", tb)
}

func (l *Log) stage(s string, active model.PlayerID) {
	l.write("[stage] %s. active=%v", s, active)
}

func (l *Log) config(g *conf.Game) {
	l.write("[config] game=%s", xgo.ToJSON(g))
}

func (l *Log) dice(p model.PlayerID, dice int32, movable []int32) {
	l.write("[roll] player:%v dice=%d, movable=%v", p, dice, movable)
}

func (l *Log) move(p model.PlayerID, piece *model.Piece, dice int32) {
	l.write("[move] player:%v piece=%s dice=%d", p, piece.Desc(), dice)
}

func (l *Log) missing(p model.PlayerID, index, cell int32) {
	l.write("[move aborted] player:%v no piece #%d at cell %d", p, index, cell)
}

func (l *Log) capture(mover, victim *model.Piece) {
	l.write("[capture] %s -> %s", mover.Desc(), victim.Desc())
}

func (l *Log) settled(piece *model.Piece, captured, arrived bool) {
	l.write("[settled] piece=%s captured=%v arrived=%v", piece.Desc(), captured, arrived)
}

func (l *Log) turn(p model.PlayerID) {
	l.write("[turn] player:%v", p)
}

func (l *Log) winner(p model.PlayerID, moves int32) {
	l.write("[winner] player:%v moves=%d", p, moves)
}

func (l *Log) end(tb string) {
	l.write("[game end] %s", tb)
	l.write("\r\n\r\n\r\n")
}

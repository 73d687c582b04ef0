package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/yola1107/ludo/internal/biz"
	"github.com/yola1107/ludo/internal/biz/table"
	"github.com/yola1107/ludo/internal/model"
	"github.com/yola1107/ludo/pkg/codes"
)

var (
	_ transport.Server = (*Console)(nil)
	_ table.Sink       = (*Console)(nil)
)

const cmdTimeout = 5 * time.Second

const helpText = `commands:
  roll | r          roll the dice for the current player
  move | m <piece>  move piece 0..3 of the current player
  state | s         dump the game state (yaml)
  board | b         print every piece
  new               start a new game
  help | h          show this help
  quit | q | exit   leave
`

// Options 控制台参数
type Options struct {
	Resume string    // 恢复的对局ID, 为空时开新局
	In     io.Reader // 默认 stdin
	Out    io.Writer // 默认 stdout
	Quit   func()    // 输入结束或 quit 时调用, 通常用于停止 App
}

// Console 本地热座对局: 四个玩家轮流在同一个终端输入
//
// 同时作为渲染层接收对局输出, 输出在串行队列中调用
type Console struct {
	uc   *biz.Usecase
	opts Options
	log  *log.Helper

	mu  sync.Mutex // 保护 out
	out io.Writer
}

// NewConsole new a console server.
func NewConsole(uc *biz.Usecase, opts *Options, logger log.Logger) *Console {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	return &Console{
		uc:   uc,
		opts: o,
		log:  log.NewHelper(logger),
		out:  o.Out,
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Start 开局后读取命令, ctx 结束或输入结束时返回
func (c *Console) Start(ctx context.Context) error {
	if err := c.open(ctx); err != nil {
		return err
	}
	c.printf(helpText)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.opts.In)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || !c.exec(ctx, line) {
				c.quit()
				return nil
			}
		}
	}
}

// Stop 关闭当前对局, 进行中的移动直接走完
func (c *Console) Stop(ctx context.Context) error {
	if err := c.uc.CloseGame(ctx); err != nil && !errors.Is(err, codes.ErrNoGame) {
		return err
	}
	c.log.Info("[console] stopped")
	return nil
}

func (c *Console) quit() {
	if c.opts.Quit != nil {
		c.opts.Quit()
	}
}

func (c *Console) open(ctx context.Context) error {
	if c.opts.Resume != "" {
		if err := c.uc.Resume(ctx, c.opts.Resume, c); err != nil {
			return fmt.Errorf("resume game %s: %w", c.opts.Resume, err)
		}
		c.printf("game %s resumed\n", c.opts.Resume)
		return nil
	}
	id, err := c.uc.NewGame(ctx, c)
	if err != nil {
		return err
	}
	c.printf("game %s started\n", id)
	return nil
}

// exec 执行一行命令, 返回 false 表示退出
func (c *Console) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, cmdTimeout)
	defer cancel()

	var err error
	switch strings.ToLower(fields[0]) {
	case "roll", "r":
		err = c.roll(ctx)
	case "move", "m":
		err = c.move(ctx, fields[1:])
	case "state", "s":
		err = c.dump(ctx)
	case "board", "b":
		err = c.board(ctx)
	case "new":
		err = c.open(ctx)
	case "help", "h", "?":
		c.printf(helpText)
	case "quit", "q", "exit":
		return false
	default:
		c.printf("unknown command %q, try help\n", fields[0])
	}
	if err != nil {
		c.printf("error: %s\n", describe(err))
	}
	return true
}

func (c *Console) roll(ctx context.Context) error {
	snap, err := c.uc.State(ctx)
	if err != nil {
		return err
	}
	_, err = c.uc.RollDice(ctx, snap.Current)
	return err
}

func (c *Console) move(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: move <piece 0..3>")
	}
	index, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("bad piece %q", args[0])
	}
	snap, err := c.uc.State(ctx)
	if err != nil {
		return err
	}
	// 选中格子取棋子当前位置, 找不到时传 -1, 由对局静默忽略
	cell := int32(-1)
	if ps, ok := lo.Find(snap.Board.Pieces, func(ps model.PieceState) bool {
		return ps.Player == snap.Current && ps.Index == int32(index)
	}); ok {
		cell = ps.Pos
	}
	return c.uc.SelectAndMove(ctx, snap.Current, int32(index), cell)
}

func (c *Console) dump(ctx context.Context) error {
	snap, err := c.uc.State(ctx)
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	c.printf("%s", b)
	return nil
}

func (c *Console) board(ctx context.Context) error {
	snap, err := c.uc.State(ctx)
	if err != nil {
		return err
	}
	byPlayer := lo.GroupBy(snap.Board.Pieces, func(ps model.PieceState) model.PlayerID { return ps.Player })
	for p := model.Player1; p <= model.Player4; p++ {
		cells := lo.Map(byPlayer[p], func(ps model.PieceState, _ int) string {
			switch {
			case ps.Travel == 0:
				return fmt.Sprintf("#%d:base", ps.Index)
			case ps.Travel == model.FinishTravel:
				return fmt.Sprintf("#%d:home", ps.Index)
			default:
				return fmt.Sprintf("#%d:%d(%d)", ps.Index, ps.Pos, ps.Travel)
			}
		})
		mark := " "
		if p == snap.Current && snap.Stage != table.StGameEnd {
			mark = ">"
		}
		c.printf("%s %v  %s\n", mark, p, strings.Join(cells, "  "))
	}
	return nil
}

// describe 业务错误只显示 message
func describe(err error) string {
	if e := errors.FromError(err); e != nil && e.Code != errors.UnknownCode {
		if len(e.Metadata) > 0 {
			return fmt.Sprintf("%s %v", e.Message, e.Metadata)
		}
		return e.Message
	}
	return err.Error()
}

/*
	渲染层输出
*/

func (c *Console) UpdatePiece(p model.PlayerID, index, pos, travel int32) {
	c.printf("  %v#%d -> %d (travel %d)\n", p, index, pos, travel)
}

func (c *Console) SetTurn(p model.PlayerID) { c.printf("turn: %v\n", p) }
func (c *Console) DisableInput()            {}
func (c *Console) EnableInput()             {}

func (c *Console) AnnounceWinner(p model.PlayerID) { c.printf("*** %v wins! ***\n", p) }

func (c *Console) SignalFireworks(on bool) {
	if on {
		c.printf("  ~ fireworks ~\n")
	}
}

func (c *Console) ShowDice(p model.PlayerID, dice int32) { c.printf("%v rolled %d\n", p, dice) }
func (c *Console) PlaySound(name table.Sound)            { c.printf("  [%s]\n", name) }

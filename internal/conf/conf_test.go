package conf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/yola1107/ludo/library/event"
	"github.com/yola1107/ludo/library/log/zap"
)

const testYaml = `
room:
  game:
    step_delay_ms: 200
    evict_delay_ms: 50
  log_cache:
    open: false
data:
  redis:
    addr: 127.0.0.1:6379
log:
  logger:
    app_name: ludo
    level: info
`

// memSource 内存配置源, push 触发一次变更
type memSource struct {
	data []byte
	ch   chan []byte
	ctx  context.Context
	stop context.CancelFunc
}

func newMemSource(data string) *memSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &memSource{data: []byte(data), ch: make(chan []byte, 1), ctx: ctx, stop: cancel}
}

func (s *memSource) kv(data []byte) []*config.KeyValue {
	return []*config.KeyValue{{Key: "config.yaml", Value: data, Format: "yaml"}}
}

func (s *memSource) Load() ([]*config.KeyValue, error) { return s.kv(s.data), nil }
func (s *memSource) Watch() (config.Watcher, error)    { return s, nil }

func (s *memSource) Next() ([]*config.KeyValue, error) {
	select {
	case data := <-s.ch:
		return s.kv(data), nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *memSource) Stop() error {
	s.stop()
	return nil
}

func (s *memSource) push(data string) { s.ch <- []byte(data) }

func TestLoad(t *testing.T) {
	c, bc, lc, err := load(newMemSource(testYaml))
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, 200*time.Millisecond, bc.Room.Game.StepDelay())
	require.Equal(t, 50*time.Millisecond, bc.Room.Game.EvictDelay())
	require.False(t, bc.Room.Game.CaptureBonusTurn)
	require.Equal(t, "./logs/games", bc.Room.LogCache.Directory)
	require.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	require.Equal(t, time.Second, bc.Data.Redis.DialTimeout())
	require.Equal(t, 24*time.Hour, bc.Data.Redis.SnapshotTTL())
	require.Equal(t, "info", lc.Log.Logger.Level)
	require.NotNil(t, lc.Log.Logger.Rotate)
}

func TestLoad_Defaults(t *testing.T) {
	c, bc, lc, err := load(newMemSource("room: {}\n"))
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, DefaultGame(), bc.Room.Game)
	require.Equal(t, Name, lc.Log.Logger.AppName)
}

func TestLoad_Invalid(t *testing.T) {
	_, _, _, err := load(newMemSource("room:\n  game:\n    step_delay_ms: -1\n"))
	require.Error(t, err)

	_, _, _, err = load(newMemSource("log:\n  logger:\n    level: loud\n"))
	require.Error(t, err)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYaml), 0o644))
	c, bc, _, err := LoadConfig(path)
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, int32(200), bc.Room.Game.StepDelayMs)
}

func TestWatchConfig(t *testing.T) {
	src := newMemSource(testYaml)
	c, bc, lc, err := load(src)
	require.NoError(t, err)
	defer c.Close()

	logger := zap.NewLogger(lc)
	defer logger.Close()
	bus := event.NewEventBus()
	got := make(chan *Game, 1)
	bus.Subscribe(TopicGame, func(val any) { got <- val.(*Game) })
	require.NoError(t, WatchConfig(c, bc, lc, logger, bus))

	src.push(`
room:
  game:
    step_delay_ms: 10
    evict_delay_ms: 5
    capture_bonus_turn: true
log:
  logger:
    level: warn
`)

	select {
	case g := <-got:
		require.Equal(t, int32(10), g.StepDelayMs)
		require.True(t, g.CaptureBonusTurn)
	case <-time.After(3 * time.Second):
		t.Fatal("no room.game update")
	}
	require.Equal(t, int32(5), bc.Room.Game.EvictDelayMs)
	require.Eventually(t, func() bool {
		return logger.GetLevel() == zapcore.WarnLevel.String()
	}, 3*time.Second, 10*time.Millisecond)
}

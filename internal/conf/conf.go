package conf

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/library/event"
	"github.com/yola1107/ludo/library/ext"
	"github.com/yola1107/ludo/library/log/zap"
	zconf "github.com/yola1107/ludo/library/log/zap/conf"
)

const Name = "ludo"
const Version = "v0.0.1"

// 配置变更事件的 topic, 与配置路径一致
const (
	TopicGame     = "room.game"
	TopicLogCache = "room.log_cache"
	TopicLogger   = "log.logger"
)

type Bootstrap struct {
	Room *Room `json:"room"`
	Data *Data `json:"data"`
}

type Room struct {
	Game     *Game     `json:"game"`
	LogCache *LogCache `json:"log_cache"`
}

// Game 对局参数
type Game struct {
	StepDelayMs      int32 `json:"step_delay_ms"`      // 前进每格间隔
	EvictDelayMs     int32 `json:"evict_delay_ms"`     // 被吃倒退每格间隔
	CaptureBonusTurn bool  `json:"capture_bonus_turn"` // 吃子后奖励一次掷骰
}

func (g *Game) StepDelay() time.Duration  { return time.Duration(g.StepDelayMs) * time.Millisecond }
func (g *Game) EvictDelay() time.Duration { return time.Duration(g.EvictDelayMs) * time.Millisecond }

// LogCache 每局对局日志
type LogCache struct {
	Open      bool   `json:"open"`
	Directory string `json:"directory"`
}

type Data struct {
	Redis *Redis `json:"redis"`
}

type Redis struct {
	Addr           string `json:"addr"`
	Password       string `json:"password"`
	Db             int32  `json:"db"`
	DialTimeoutMs  int32  `json:"dial_timeout_ms"`
	SnapshotTTLSec int32  `json:"snapshot_ttl_sec"`
}

func (r *Redis) DialTimeout() time.Duration {
	return time.Duration(r.DialTimeoutMs) * time.Millisecond
}

func (r *Redis) SnapshotTTL() time.Duration {
	return time.Duration(r.SnapshotTTLSec) * time.Second
}

// DefaultGame 默认节奏: 前进 200ms 一格, 倒退 50ms 一格
func DefaultGame() *Game {
	return &Game{StepDelayMs: 200, EvictDelayMs: 50}
}

// Validate 校验并补全缺省项
func (b *Bootstrap) Validate() error {
	if b == nil {
		return fmt.Errorf("bootstrap config missing")
	}
	if b.Room == nil {
		b.Room = &Room{}
	}
	if b.Room.Game == nil {
		b.Room.Game = DefaultGame()
	}
	if err := b.Room.Game.Validate(); err != nil {
		return err
	}
	if b.Room.LogCache == nil {
		b.Room.LogCache = &LogCache{}
	}
	if b.Room.LogCache.Directory == "" {
		b.Room.LogCache.Directory = "./logs/games"
	}
	if b.Data == nil {
		b.Data = &Data{}
	}
	if b.Data.Redis == nil {
		b.Data.Redis = &Redis{}
	}
	r := b.Data.Redis
	if r.Db < 0 {
		return fmt.Errorf("invalid redis db %d", r.Db)
	}
	if r.DialTimeoutMs <= 0 {
		r.DialTimeoutMs = 1000
	}
	if r.SnapshotTTLSec <= 0 {
		r.SnapshotTTLSec = 86400
	}
	return nil
}

func (g *Game) Validate() error {
	if g.StepDelayMs < 0 || g.EvictDelayMs < 0 {
		return fmt.Errorf("invalid delays: step=%dms evict=%dms", g.StepDelayMs, g.EvictDelayMs)
	}
	return nil
}

// LoadConfig 加载配置
func LoadConfig(flagconf string) (config.Config, *Bootstrap, *zconf.Bootstrap, error) {
	return load(file.NewSource(flagconf))
}

func load(sources ...config.Source) (config.Config, *Bootstrap, *zconf.Bootstrap, error) {
	c := config.New(config.WithSource(sources...))
	if err := c.Load(); err != nil {
		return nil, nil, nil, err
	}

	var (
		bc Bootstrap
		lc zconf.Bootstrap
	)
	if err := c.Scan(&bc); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("bootstrap config invalid: %w", err)
	}
	if err := bc.Validate(); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("bootstrap config invalid: %w", err)
	}
	if err := c.Scan(&lc); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("logger config invalid: %w", err)
	}
	if lc.Log == nil {
		lc = *zconf.DefaultConfig(zconf.WithAppName(Name))
	}
	if err := lc.Validate(); err != nil {
		_ = c.Close()
		return nil, nil, nil, fmt.Errorf("logger config invalid: %w", err)
	}
	return c, &bc, &lc, nil
}

// WatchConfig 监听配置变更, 更新后推送到 bus
func WatchConfig(c config.Config, bc *Bootstrap, lc *zconf.Bootstrap, logger *zap.Logger, bus *event.Bus) error {
	// 订阅配置变更事件回调
	subscribeBus(bus, logger)

	for key, ptr := range map[string]any{
		TopicGame:     bc.Room.Game,
		TopicLogCache: bc.Room.LogCache,
		TopicLogger:   lc.Log.Logger,
	} {
		if err := c.Watch(key, observer(key, ptr, bus)); err != nil {
			return fmt.Errorf("watch %q failed: %w", key, err)
		}
	}
	return nil
}

func observer(key string, target any, bus *event.Bus) func(string, config.Value) {
	return func(_ string, val config.Value) {
		typ := reflect.TypeOf(target)
		if typ.Kind() != reflect.Pointer {
			log.Errorf("[config] %q target must be a pointer", key)
			return
		}

		newVal := reflect.New(typ.Elem()).Interface()
		if err := val.Scan(newVal); err != nil {
			log.Errorf("[config] scan failed: key=%q, err=%v", key, err)
			return
		}

		if v, ok := newVal.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				log.Errorf("[config] validation failed: key=%q, err=%v", key, err)
				return
			}
		}

		_, diff, err := ext.DiffLog(target, newVal)
		if err != nil {
			log.Errorf("[config] diff failed: key=%q, err=%v", key, err)
			return
		}
		if len(diff) > 0 {
			log.Warnf("[config] [%q] updated:\n%s", key, diff)
			// 刷新配置 深拷贝
			if err := ext.DeepCopy(target, newVal); err != nil {
				log.Errorf("[config] update failed: key=%q, err=%v", key, err)
				return
			}
			// 通知订阅者
			bus.Publish(key, newVal)
		}
	}
}

// 注册相关的订阅者回调
func subscribeBus(bus *event.Bus, logger *zap.Logger) {
	if logger == nil {
		return
	}
	bus.Subscribe(TopicLogger, func(val any) {
		if v, ok := val.(*zconf.Logger); ok {
			if v.Level != logger.GetLevel() {
				logger.SetLevel(v.Level)
			}
			if changes, err := ext.Diff(v.Sensitive, logger.GetSensitive()); err == nil && len(changes) > 0 {
				logger.SetSensitive(v.Sensitive)
			}
		}
	})
}

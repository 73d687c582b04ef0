package zap

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yola1107/ludo/library/log/zap/conf"
)

var _ log.Logger = (*Logger)(nil)

const sensitiveMask = "***"

// Logger kratos log.Logger 的 zap 实现, 级别与脱敏字段可以运行时修改
type Logger struct {
	wrap *zapWrap

	mu         sync.RWMutex
	sensitives map[string]struct{} // 小写 key
}

// Option 构造选项
type Option func(*options)

type options struct {
	console zapcore.WriteSyncer
}

// WithConsole 替换控制台输出, 默认 stderr
func WithConsole(w zapcore.WriteSyncer) Option {
	return func(o *options) { o.console = w }
}

func NewLogger(c *conf.Bootstrap, opts ...Option) *Logger {
	if c == nil || c.Log == nil || c.Log.Logger == nil {
		c = conf.DefaultConfig()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	lc := c.Log.Logger
	l := &Logger{wrap: newZapWrap(lc, o.console)}
	l.SetSensitive(lc.Sensitive)
	return l
}

// kratos 的 Fatal 对应 zap 的 Fatal, 其余级别数值一致
func zapLevel(level log.Level) zapcore.Level {
	if level == log.LevelFatal {
		return zapcore.FatalLevel
	}
	return zapcore.Level(level)
}

func (l *Logger) Log(level log.Level, keyvals ...any) error {
	zl := zapLevel(level)
	// 该级别未开启时跳过格式化
	if !l.wrap.log.Core().Enabled(zl) {
		return nil
	}
	if len(keyvals) == 0 || len(keyvals)%2 != 0 {
		l.wrap.log.Warn(fmt.Sprint("Keyvalues must appear in pairs: ", keyvals))
		return nil
	}

	msg, fields := l.fields(keyvals)
	logger := l.wrap.log.WithOptions(zap.AddCallerSkip(calculateSkip()))
	if ce := logger.Check(zl, msg); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

// fields 拆出 msg, 其余键值转为 zap 字段并脱敏
func (l *Logger) fields(keyvals []any) (string, []zap.Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	msg := ""
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		if key == log.DefaultMessageKey {
			msg, _ = keyvals[i+1].(string)
			continue
		}
		if _, hide := l.sensitives[strings.ToLower(key)]; hide {
			fields = append(fields, zap.String(key, sensitiveMask))
			continue
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	return msg, fields
}

func (l *Logger) Close() error {
	return l.wrap.close()
}

func (l *Logger) GetZap() *zap.Logger {
	return l.wrap.log
}

func (l *Logger) GetLevel() string {
	return l.wrap.level.String()
}

// SetLevel 非法级别忽略
func (l *Logger) SetLevel(level string) {
	if err := l.wrap.level.UnmarshalText([]byte(level)); err != nil {
		l.wrap.log.Info("invalid log level", zap.String("level", level), zap.Error(err))
		return
	}
	l.wrap.log.Info("log level updated", zap.String("level", level))
}

func (l *Logger) GetSensitive() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.sensitives))
	for k := range l.sensitives {
		keys = append(keys, k)
	}
	return keys
}

func (l *Logger) SetSensitive(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	l.mu.Lock()
	l.sensitives = set
	l.mu.Unlock()
}

// calculateSkip 经 kratos Helper 调用时多跳过一层
func calculateSkip() int {
	pc := make([]uintptr, 8)
	n := runtime.Callers(3, pc)
	if n == 0 {
		return 2
	}
	frames := runtime.CallersFrames(pc[:n])
	for frame, more := frames.Next(); more; frame, more = frames.Next() {
		if strings.Contains(frame.Function, "kratos/v2/log.(*") {
			return 3
		}
	}
	return 2
}

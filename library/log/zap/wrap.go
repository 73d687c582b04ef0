package zap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yola1107/ludo/library/log/zap/conf"
)

const timeFormat = "2006/01/02 15:04:05.000"

// levelStyle 级别的显示名与控制台颜色
type levelStyle struct {
	name  string
	color string
}

var levelStyles = map[zapcore.Level]levelStyle{
	zapcore.DebugLevel:  {"DEBUG", "\x1b[36m"},
	zapcore.InfoLevel:   {"INFO·", "\x1b[32m"},
	zapcore.WarnLevel:   {"WARN·", "\x1b[33m"},
	zapcore.ErrorLevel:  {"ERROR", "\x1b[31m"},
	zapcore.DPanicLevel: {"PANIC", "\x1b[35m"},
	zapcore.PanicLevel:  {"PANIC", "\x1b[35m"},
	zapcore.FatalLevel:  {"FATAL", "\x1b[35m"},
}

// zapWrap zap 实例与可热更新的级别
type zapWrap struct {
	log     *zap.Logger
	level   zap.AtomicLevel
	closers []io.Closer // 滚动文件
}

func (w *zapWrap) close() error {
	_ = w.log.Sync()
	for _, c := range w.closers {
		_ = c.Close()
	}
	return nil
}

// newZapWrap 控制台始终输出; 生产模式再加滚动文件, 可选单独的 error 文件
func newZapWrap(c *conf.Logger, console zapcore.WriteSyncer) *zapWrap {
	w := &zapWrap{level: zap.NewAtomicLevel()}
	if err := w.level.UnmarshalText([]byte(c.Level)); err != nil {
		panic(fmt.Errorf("invalid log level: %s", c.Level))
	}
	if console == nil {
		console = zapcore.Lock(os.Stderr)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), console, w.level),
	}
	if c.Mode == conf.MODE_PROD && c.Directory != "" {
		app := c.AppName
		if app == "" {
			app = "app"
		}
		cores = append(cores, w.fileCore(c, app+".log", w.level))
		if c.ErrorFile {
			cores = append(cores, w.fileCore(c, app+"_error.log", zap.ErrorLevel))
		}
	}

	w.log = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.PanicLevel),
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			// 每秒同一条日志前 2000 条全部输出, 之后每 10 条输出 1 条
			return zapcore.NewSamplerWithOptions(core, time.Second, 2000, 10)
		}),
	)
	return w
}

func (w *zapWrap) fileCore(c *conf.Logger, filename string, enab zapcore.LevelEnabler) zapcore.Core {
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(c.Directory, filename),
		MaxSize:    int(c.Rotate.MaxSizeMB),
		MaxBackups: int(c.Rotate.MaxBackups),
		MaxAge:     int(c.Rotate.MaxAgeDays),
		Compress:   c.Rotate.Compress,
		LocalTime:  c.Rotate.LocalTime,
	}
	w.closers = append(w.closers, lj)

	enc := zapcore.NewConsoleEncoder(encoderConfig(false))
	if c.FormatJson {
		enc = zapcore.NewJSONEncoder(encoderConfig(false))
	}
	return zapcore.NewCore(enc, zapcore.AddSync(lj), enab)
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format(timeFormat) + "]")
	}
	if color {
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			s := levelStyles[l]
			enc.AppendString("[" + s.color + s.name + "\x1b[0m]")
		}
		return cfg
	}
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + c.TrimmedPath() + "]")
	}
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + levelStyles[l].name + "]")
	}
	return cfg
}

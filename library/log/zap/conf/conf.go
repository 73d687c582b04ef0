package conf

import (
	"fmt"
	"strings"
)

// Mode 日志运行模式
type Mode int32

const (
	MODE_DEV  Mode = 0 // 仅控制台
	MODE_PROD Mode = 1 // 控制台 + 滚动文件
)

// Bootstrap 日志配置根节点, 对应配置文件中的 log 段
type Bootstrap struct {
	Log *Log `json:"log"`
}

type Log struct {
	Logger *Logger `json:"logger"`
}

type Logger struct {
	Mode       Mode     `json:"mode"`
	AppName    string   `json:"app_name"`
	Level      string   `json:"level"`
	Directory  string   `json:"directory"`
	FormatJson bool     `json:"format_json"`
	ErrorFile  bool     `json:"error_file"`
	Sensitive  []string `json:"sensitive"`
	Rotate     *Rotate  `json:"rotate"`
}

type Rotate struct {
	MaxSizeMB  int32 `json:"max_size_mb"`
	MaxBackups int32 `json:"max_backups"`
	MaxAgeDays int32 `json:"max_age_days"`
	Compress   bool  `json:"compress"`
	LocalTime  bool  `json:"local_time"`
}

var validLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {}, "fatal": {},
}

// Validate 校验并补全缺省项
func (b *Bootstrap) Validate() error {
	if b == nil || b.Log == nil || b.Log.Logger == nil {
		return fmt.Errorf("log.logger section missing")
	}
	l := b.Log.Logger
	if _, ok := validLevels[strings.ToLower(l.Level)]; !ok {
		return fmt.Errorf("invalid log level %q", l.Level)
	}
	if l.Mode != MODE_DEV && l.Mode != MODE_PROD {
		return fmt.Errorf("invalid log mode %d", l.Mode)
	}
	if l.Rotate == nil {
		l.Rotate = DefaultConfig().Log.Logger.Rotate
	}
	return nil
}

func DefaultConfig(opts ...Option) *Bootstrap {
	c := &Log{
		Logger: &Logger{
			Mode:       MODE_DEV,
			AppName:    "app",
			Level:      "debug",
			Directory:  "./logs",
			FormatJson: false,
			ErrorFile:  false,
			Sensitive:  []string{},
			Rotate: &Rotate{
				MaxSizeMB:  100,
				MaxBackups: 7,
				MaxAgeDays: 7,
				Compress:   true,
				LocalTime:  true,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return &Bootstrap{
		Log: c,
	}
}

type Option func(*Log)

func WithAppName(appName string) Option {
	return func(c *Log) { c.Logger.AppName = appName }
}

func WithLevel(level string) Option {
	return func(c *Log) { c.Logger.Level = level }
}

// WithFiles 生产模式: 额外写入 dir 下的滚动文件
func WithFiles(dir string) Option {
	return func(c *Log) {
		c.Logger.Mode = MODE_PROD
		c.Logger.Directory = dir
	}
}

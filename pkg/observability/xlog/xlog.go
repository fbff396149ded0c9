package xlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Logger ctx 优先的日志接口，属性只接受 slog.Attr
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 派生 Logger，与父级共享级别
	With(attrs ...slog.Attr) Logger
}

// LoggerWithLevel Build 返回的 Logger，可在运行时调整级别
type LoggerWithLevel interface {
	Logger
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// Level 日志级别，取值与 slog.Level 相同
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

func (l Level) String() string { return slog.Level(l).String() }

// ParseLevel 解析 debug/info/warn(warning)/error，忽略大小写与首尾空白
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "debug", "info", "warn", "error":
	case "warning":
		name = "warn"
	default:
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q: %w", s, err)
	}
	return Level(l), nil
}

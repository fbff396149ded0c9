package xtailsample

import "errors"

// 配置与构建相关的错误
var (
	// ErrNilSink 表示下游 SpanProcessor 为 nil
	ErrNilSink = errors.New("xtailsample: sink processor must not be nil")

	// ErrNilTail 表示未配置尾部决策函数
	ErrNilTail = errors.New("xtailsample: tail decision function must not be nil")

	// ErrInvalidCacheSize 表示决策缓存容量非法
	ErrInvalidCacheSize = errors.New("xtailsample: invalid decision cache size")

	// ErrNilOption 表示传入了 nil 的 Option 函数
	ErrNilOption = errors.New("xtailsample: nil option")

	// ErrUnknownLevel 表示无法识别的级别名称
	ErrUnknownLevel = errors.New("xtailsample: unknown level name")

	// ErrRateOrder 表示比率不满足 background <= tail <= head
	ErrRateOrder = errors.New("xtailsample: rates must satisfy background <= tail <= head")

	// ErrInvalidDuration 表示耗时阈值为负数
	ErrInvalidDuration = errors.New("xtailsample: duration threshold must not be negative")
)

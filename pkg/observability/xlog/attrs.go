package xlog

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// 常用属性 Key 常量
const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyDuration 耗时字段的标准 key
	KeyDuration = "duration"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyDecision 采样决策字段（keep/drop）
	KeyDecision = "decision"

	// KeyRate 采样比率字段
	KeyRate = "rate"

	// KeySpanCount 缓冲 span 数量字段
	KeySpanCount = "span_count"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "5s"）
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// TraceID 创建 trace_id 属性
//
// 用于记录与当前 context 无关的 trace（如处理器内部决策日志）。
func TraceID(id trace.TraceID) slog.Attr {
	return slog.String(KeyTraceID, id.String())
}

// Decision 创建采样决策属性
func Decision(d string) slog.Attr {
	return slog.String(KeyDecision, d)
}

// Rate 创建采样比率属性
func Rate(r float64) slog.Attr {
	return slog.Float64(KeyRate, r)
}

// SpanCount 创建 span 数量属性
func SpanCount(n int) slog.Attr {
	return slog.Int(KeySpanCount, n)
}

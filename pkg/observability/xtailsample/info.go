package xtailsample

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// SpanEvent 触发决策的事件类型
type SpanEvent uint8

// 事件类型
const (
	EventStart SpanEvent = iota + 1
	EventEnd
)

func (e SpanEvent) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// SpanSamplingInfo 传给尾部决策函数的只读视图
//
// 仅在决策函数调用期间有效，决策函数不应保留它或其中的 Buffer。
type SpanSamplingInfo struct {
	span   sdktrace.ReadOnlySpan
	ctx    context.Context
	event  SpanEvent
	buffer *TraceBuffer
}

// Span 触发本次决策的 span
func (i SpanSamplingInfo) Span() sdktrace.ReadOnlySpan { return i.span }

// Context span 开始时的父 context，孤立结束事件为 context.Background()
func (i SpanSamplingInfo) Context() context.Context { return i.ctx }

// Event 事件类型
func (i SpanSamplingInfo) Event() SpanEvent { return i.event }

// Buffer 所属 trace 的缓冲
func (i SpanSamplingInfo) Buffer() *TraceBuffer { return i.buffer }

// TraceID 所属 trace ID
func (i SpanSamplingInfo) TraceID() trace.TraceID { return i.buffer.TraceID() }

// Level 返回 span 的严重级别
//
// 优先读取 LevelAttrKey 属性（整数，或级别名称字符串）；属性缺失时，
// 状态为 codes.Error 的 span 视为 error 级别，否则为 info。
func (i SpanSamplingInfo) Level() SpanLevel {
	for _, kv := range i.span.Attributes() {
		if kv.Key != LevelAttrKey {
			continue
		}
		switch kv.Value.Type() {
		case attribute.INT64:
			return NewSpanLevel(kv.Value.AsInt64())
		case attribute.STRING:
			if name, err := ParseLevelName(kv.Value.AsString()); err == nil {
				return LevelOf(name)
			}
		}
		return NewSpanLevel(0)
	}
	if i.span.Status().Code == codes.Error {
		return LevelOf(LevelError)
	}
	return LevelOf(LevelInfo)
}

// Duration 返回事件时间与 trace 首个 span 开始时间的差
//
// 开始事件取 span 的开始时间，结束事件取结束时间，结果不为负。
func (i SpanSamplingInfo) Duration() time.Duration {
	ts := i.span.StartTime()
	if i.event == EventEnd {
		ts = i.span.EndTime()
	}
	d := ts.Sub(i.buffer.FirstSpan().StartTime())
	if d < 0 {
		return 0
	}
	return d
}

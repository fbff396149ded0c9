package xtailsample

import (
	"context"
	"slices"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// StartEvent 一次缓冲的 span 开始事件
type StartEvent struct {
	Span   sdktrace.ReadWriteSpan
	Parent context.Context
}

// TraceBuffer 单个 trace 尚未转发的事件
//
// firstSpan 与 traceID 在创建时确定：通常是第一个开始事件的 span，
// 对于没有开始事件的孤立结束事件，则是该结束的 span 本身。
// 不支持移除单个条目，整个缓冲在 trace 被转发或丢弃时一起销毁。
//
// TraceBuffer 不是并发安全的，由 Processor 的锁保护。
type TraceBuffer struct {
	traceID   trace.TraceID
	firstSpan sdktrace.ReadOnlySpan
	started   []StartEvent
	ended     []sdktrace.ReadOnlySpan
	index     map[trace.SpanID]int // SpanID → started 下标
	open      int                  // 已开始未结束的 span 数
}

func newTraceBuffer(first sdktrace.ReadOnlySpan) *TraceBuffer {
	return &TraceBuffer{
		traceID:   first.SpanContext().TraceID(),
		firstSpan: first,
		index:     make(map[trace.SpanID]int),
	}
}

func (b *TraceBuffer) appendStart(span sdktrace.ReadWriteSpan, parent context.Context) {
	b.index[span.SpanContext().SpanID()] = len(b.started)
	b.started = append(b.started, StartEvent{Span: span, Parent: parent})
	b.open++
}

func (b *TraceBuffer) appendEnd(span sdktrace.ReadOnlySpan) {
	b.ended = append(b.ended, span)
	if _, ok := b.index[span.SpanContext().SpanID()]; ok && b.open > 0 {
		b.open--
	}
}

// isFirst 报告 span 是否为本 trace 本地观察到的首个 span
//
// SDK 传给 OnEnd 的是快照，与 OnStart 的对象不同，必须按 SpanID 比较。
func (b *TraceBuffer) isFirst(span sdktrace.ReadOnlySpan) bool {
	return span.SpanContext().SpanID() == b.firstSpan.SpanContext().SpanID()
}

// parentOf 返回 span 开始时记录的父 context，没有开始事件时返回 nil
func (b *TraceBuffer) parentOf(id trace.SpanID) context.Context {
	if i, ok := b.index[id]; ok {
		return b.started[i].Parent
	}
	return nil
}

// Open 已开始但尚未结束的 span 数
func (b *TraceBuffer) Open() int { return b.open }

// TraceID 缓冲所属的 trace ID
func (b *TraceBuffer) TraceID() trace.TraceID { return b.traceID }

// FirstSpan 本地观察到的首个 span
func (b *TraceBuffer) FirstSpan() sdktrace.ReadOnlySpan { return b.firstSpan }

// Started 按到达顺序返回开始事件的副本
func (b *TraceBuffer) Started() []StartEvent { return slices.Clone(b.started) }

// Ended 按到达顺序返回结束事件的副本
func (b *TraceBuffer) Ended() []sdktrace.ReadOnlySpan { return slices.Clone(b.ended) }

// Len 缓冲的事件总数（开始 + 结束）
func (b *TraceBuffer) Len() int { return len(b.started) + len(b.ended) }

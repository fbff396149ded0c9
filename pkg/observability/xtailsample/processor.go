package xtailsample

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtail/pkg/observability/xlog"
	"github.com/omeyang/xtail/pkg/observability/xsampling"
)

// DefaultKeptCacheSize 已保留且本地 span 全部结束的 trace ID 缓存容量
const DefaultKeptCacheSize = 65536

type processorConfig struct {
	logger        xlog.Logger
	meterProvider metric.MeterProvider
	keptSize      int
	droppedSize   int
}

// Option Processor 配置选项
type Option func(*processorConfig)

// WithLogger 设置日志记录器，nil 忽略，默认丢弃所有日志
func WithLogger(l xlog.Logger) Option {
	return func(c *processorConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 忽略，默认 otel.GetMeterProvider()
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(c *processorConfig) {
		if provider != nil {
			c.meterProvider = provider
		}
	}
}

// WithKeptCacheSize 已保留且本地 span 全部结束的 trace 缓存容量，必须为正数
//
// 仍有未结束 span 的已保留 trace 不受容量限制，不会被淘汰。
// 被淘汰的 trace 再到达的 span 会被当作新 trace 重新决策。
func WithKeptCacheSize(n int) Option {
	return func(c *processorConfig) { c.keptSize = n }
}

// WithDroppedCacheSize 已丢弃 trace 的缓存容量，0 表示不记录（默认）
//
// 不记录时，已丢弃 trace 的迟到 span 会被当作新 trace 重新决策；
// 记录后，缓存中 trace 的迟到 span 直接丢弃。
func WithDroppedCacheSize(n int) Option {
	return func(c *processorConfig) { c.droppedSize = n }
}

// Processor 尾部采样 SpanProcessor
//
// 按 trace 缓冲开始/结束事件，每个事件都调用尾部决策函数：
//   - 决定保留：按原顺序把缓冲的开始事件、结束事件转发给 sink，之后该
//     trace 的事件直接透传
//   - 本地首个 span 结束仍未决定保留：丢弃整个缓冲
//
// 已保留的 trace 按本地未结束 span 数跟踪，归零后才进入有界 LRU，
// 因此进行中的已保留 trace 不会因淘汰丢失 span。
//
// 所有状态由一把互斥锁保护，决策函数与 sink 在锁内调用。
type Processor struct {
	sink    sdktrace.SpanProcessor
	logger  xlog.Logger
	metrics *metrics
	opts    atomic.Pointer[SamplingOptions]

	mu      sync.Mutex
	traces  map[trace.TraceID]*TraceBuffer
	active  map[trace.TraceID]int // 已保留且仍有未结束 span 的 trace → 未结束 span 数
	kept    *simplelru.LRU[trace.TraceID, struct{}]
	dropped *simplelru.LRU[trace.TraceID, struct{}] // nil 表示不记录
	stopped bool
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// NewProcessor 创建尾部采样处理器
//
// sink 接收被保留 trace 的全部事件，通常是 BatchSpanProcessor。
func NewProcessor(sink sdktrace.SpanProcessor, opts SamplingOptions, options ...Option) (*Processor, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cfg := processorConfig{
		logger:        xlog.Discard(),
		meterProvider: otel.GetMeterProvider(),
		keptSize:      DefaultKeptCacheSize,
	}
	for _, opt := range options {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(&cfg)
	}
	if cfg.keptSize <= 0 || cfg.droppedSize < 0 {
		return nil, fmt.Errorf("%w: kept=%d dropped=%d", ErrInvalidCacheSize, cfg.keptSize, cfg.droppedSize)
	}

	kept, err := simplelru.NewLRU[trace.TraceID, struct{}](cfg.keptSize, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCacheSize, err)
	}
	var dropped *simplelru.LRU[trace.TraceID, struct{}]
	if cfg.droppedSize > 0 {
		dropped, err = simplelru.NewLRU[trace.TraceID, struct{}](cfg.droppedSize, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCacheSize, err)
		}
	}

	m, err := newMetrics(cfg.meterProvider)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		sink:    sink,
		logger:  cfg.logger.With(xlog.Component("xtailsample")),
		metrics: m,
		traces:  make(map[trace.TraceID]*TraceBuffer),
		active:  make(map[trace.TraceID]int),
		kept:    kept,
		dropped: dropped,
	}
	p.opts.Store(&opts)
	return p, nil
}

// OnStart 实现 sdktrace.SpanProcessor
func (p *Processor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if parent == nil {
		parent = context.Background()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	id := s.SpanContext().TraceID()
	buf, ok := p.traces[id]
	if !ok {
		if p.passStart(id) {
			p.sink.OnStart(parent, s)
			p.metrics.live(parent)
			return
		}
		if p.forgotten(id) {
			p.metrics.discard(parent, 1)
			return
		}
		buf = newTraceBuffer(s)
		p.traces[id] = buf
		p.metrics.pendingAdd(parent, 1)
	}
	buf.appendStart(s, parent)

	info := SpanSamplingInfo{span: s, ctx: parent, event: EventStart, buffer: buf}
	if p.CheckSpan(info) {
		p.metrics.decision(parent, decisionKeep, EventStart)
		p.flush(parent, buf)
	}
}

// OnEnd 实现 sdktrace.SpanProcessor
//
// 从未见过开始事件的 span 会以自身为首个 span 建立缓冲并立即决策。
func (p *Processor) OnEnd(s sdktrace.ReadOnlySpan) {
	ctx := context.Background()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	id := s.SpanContext().TraceID()
	buf, ok := p.traces[id]
	if !ok {
		if p.passEnd(id) {
			p.sink.OnEnd(s)
			p.metrics.live(ctx)
			return
		}
		if p.forgotten(id) {
			p.metrics.discard(ctx, 1)
			return
		}
		p.logger.Debug(ctx, "span end without buffered start",
			xlog.TraceID(id), slog.String("span", s.Name()))
		buf = newTraceBuffer(s)
		p.traces[id] = buf
		p.metrics.pendingAdd(ctx, 1)
	}
	buf.appendEnd(s)

	parent := buf.parentOf(s.SpanContext().SpanID())
	if parent == nil {
		parent = ctx
	}
	info := SpanSamplingInfo{span: s, ctx: parent, event: EventEnd, buffer: buf}
	if p.CheckSpan(info) {
		p.metrics.decision(ctx, decisionKeep, EventEnd)
		p.flush(ctx, buf)
		return
	}
	if buf.isFirst(s) {
		p.metrics.decision(ctx, decisionDrop, EventEnd)
		p.drop(ctx, buf)
	}
}

// CheckSpan 调用尾部决策函数得到比率，再按 trace ID 做确定性比率判定
func (p *Processor) CheckSpan(info SpanSamplingInfo) bool {
	rate := p.opts.Load().Tail(info)
	return xsampling.TraceIDRatio(info.TraceID(), rate)
}

// passStart 报告 trace 是否已决定保留，命中时未结束 span 数加一
//
// 已结束的保留 trace 从 LRU 移回 active，保证新 span 结束前不被淘汰。
func (p *Processor) passStart(id trace.TraceID) bool {
	if n, ok := p.active[id]; ok {
		p.active[id] = n + 1
		return true
	}
	if p.kept.Contains(id) {
		p.kept.Remove(id)
		p.active[id] = 1
		return true
	}
	return false
}

// passEnd 报告 trace 是否已决定保留，命中时未结束 span 数减一，归零后移入 LRU
func (p *Processor) passEnd(id trace.TraceID) bool {
	if n, ok := p.active[id]; ok {
		if n > 1 {
			p.active[id] = n - 1
		} else {
			delete(p.active, id)
			p.kept.Add(id, struct{}{})
		}
		return true
	}
	_, ok := p.kept.Get(id)
	return ok
}

// markKept 记录已保留的 trace，有未结束 span 时不进入可淘汰的 LRU
func (p *Processor) markKept(id trace.TraceID, open int) {
	if open > 0 {
		p.active[id] = open
		return
	}
	p.kept.Add(id, struct{}{})
}

func (p *Processor) forgotten(id trace.TraceID) bool {
	return p.dropped != nil && p.dropped.Contains(id)
}

// flush 转发整个缓冲：先全部开始事件，再全部结束事件，各自保持到达顺序
//
// 先移除缓冲并记为已保留，再转发。sink panic 时 trace 保持已保留状态，
// 已转发的前缀不会重发。
func (p *Processor) flush(ctx context.Context, buf *TraceBuffer) {
	id := buf.TraceID()
	delete(p.traces, id)
	p.markKept(id, buf.Open())
	p.metrics.pendingAdd(ctx, -1)

	p.logger.Debug(ctx, "trace kept",
		xlog.TraceID(id), xlog.Decision(decisionKeep), xlog.SpanCount(buf.Len()))

	for _, ev := range buf.started {
		p.sink.OnStart(ev.Parent, ev.Span)
	}
	for _, s := range buf.ended {
		p.sink.OnEnd(s)
	}
	p.metrics.flushed(ctx, buf.Len())
}

// drop 移除缓冲，不转发任何事件
func (p *Processor) drop(ctx context.Context, buf *TraceBuffer) {
	id := buf.TraceID()
	delete(p.traces, id)
	if p.dropped != nil {
		p.dropped.Add(id, struct{}{})
	}
	p.metrics.pendingAdd(ctx, -1)
	p.metrics.discard(ctx, buf.Len())

	p.logger.Debug(ctx, "trace dropped",
		xlog.TraceID(id), xlog.Decision(decisionDrop), xlog.SpanCount(buf.Len()))
}

// Shutdown 丢弃所有未决缓冲并关闭 sink，幂等
//
// 缓冲不持久化，未决 trace 在关闭时直接丢弃。关闭后的事件被忽略。
func (p *Processor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	pending := len(p.traces)
	events := 0
	for _, buf := range p.traces {
		events += buf.Len()
	}
	clear(p.traces)
	clear(p.active)
	p.kept.Purge()
	if p.dropped != nil {
		p.dropped.Purge()
	}
	p.mu.Unlock()

	p.metrics.pendingAdd(ctx, -pending)
	p.metrics.discard(ctx, events)
	if pending > 0 {
		p.logger.Warn(ctx, "discarding undecided traces on shutdown",
			slog.Int("traces", pending), xlog.SpanCount(events))
	}
	return p.sink.Shutdown(ctx)
}

// ForceFlush 委托给 sink，不会强制未决 trace 做出决策
func (p *Processor) ForceFlush(ctx context.Context) error {
	return p.sink.ForceFlush(ctx)
}

// PendingTraces 返回等待决策的 trace 数量
func (p *Processor) PendingTraces() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.traces)
}

// Options 返回当前生效的采样配置
func (p *Processor) Options() SamplingOptions {
	return *p.opts.Load()
}

// UpdateOptions 替换尾部决策函数，用于配置热更新
//
// 已缓冲的 trace 从下一个事件开始使用新策略，已做出的决策不受影响。
func (p *Processor) UpdateOptions(opts SamplingOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	p.opts.Store(&opts)
	p.logger.Info(context.Background(), "sampling options updated",
		slog.Int("pending_traces", p.PendingTraces()))
	return nil
}

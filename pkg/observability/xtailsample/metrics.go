package xtailsample

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/omeyang/xtail/xtailsample"

	metricDecisions = "xtail.trace.decisions"
	metricForwarded = "xtail.spans.forwarded"
	metricDiscarded = "xtail.spans.discarded"
	metricPending   = "xtail.traces.pending"
)

// 指标属性值
const (
	decisionKeep = "keep"
	decisionDrop = "drop"

	modeFlush = "flush"
	modeLive  = "live"
)

type metrics struct {
	decisions metric.Int64Counter
	forwarded metric.Int64Counter
	discarded metric.Int64Counter
	pending   metric.Int64UpDownCounter

	// 属性集合预先构建，避免热路径分配
	decisionAttrs map[string]map[SpanEvent]metric.AddOption
	flushAttrs    metric.AddOption
	liveAttrs     metric.AddOption
}

func newMetrics(provider metric.MeterProvider) (*metrics, error) {
	meter := provider.Meter(instrumentationName)

	decisions, err := meter.Int64Counter(
		metricDecisions,
		metric.WithDescription("trace sampling decisions"),
		metric.WithUnit("{trace}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtailsample: create counter failed: %w", err)
	}
	forwarded, err := meter.Int64Counter(
		metricForwarded,
		metric.WithDescription("span events forwarded to the sink"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtailsample: create counter failed: %w", err)
	}
	discarded, err := meter.Int64Counter(
		metricDiscarded,
		metric.WithDescription("buffered span events discarded"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtailsample: create counter failed: %w", err)
	}
	pending, err := meter.Int64UpDownCounter(
		metricPending,
		metric.WithDescription("traces buffered awaiting a decision"),
		metric.WithUnit("{trace}"),
	)
	if err != nil {
		return nil, fmt.Errorf("xtailsample: create updown counter failed: %w", err)
	}

	m := &metrics{
		decisions:     decisions,
		forwarded:     forwarded,
		discarded:     discarded,
		pending:       pending,
		decisionAttrs: make(map[string]map[SpanEvent]metric.AddOption, 2),
		flushAttrs:    metric.WithAttributeSet(attribute.NewSet(attribute.String("mode", modeFlush))),
		liveAttrs:     metric.WithAttributeSet(attribute.NewSet(attribute.String("mode", modeLive))),
	}
	for _, d := range []string{decisionKeep, decisionDrop} {
		m.decisionAttrs[d] = map[SpanEvent]metric.AddOption{}
		for _, ev := range []SpanEvent{EventStart, EventEnd} {
			m.decisionAttrs[d][ev] = metric.WithAttributeSet(attribute.NewSet(
				attribute.String("decision", d),
				attribute.String("event", ev.String()),
			))
		}
	}
	return m, nil
}

func (m *metrics) decision(ctx context.Context, decision string, ev SpanEvent) {
	m.decisions.Add(ctx, 1, m.decisionAttrs[decision][ev])
}

func (m *metrics) flushed(ctx context.Context, n int) {
	m.forwarded.Add(ctx, int64(n), m.flushAttrs)
}

func (m *metrics) live(ctx context.Context) {
	m.forwarded.Add(ctx, 1, m.liveAttrs)
}

func (m *metrics) discard(ctx context.Context, n int) {
	if n > 0 {
		m.discarded.Add(ctx, int64(n))
	}
}

func (m *metrics) pendingAdd(ctx context.Context, delta int) {
	if delta != 0 {
		m.pending.Add(ctx, int64(delta))
	}
}

package xtailsample

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var (
	testTraceID = trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36}
	testEpoch   = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
)

type stubSpan struct {
	spanID byte
	start  time.Duration
	end    time.Duration
	attrs  []attribute.KeyValue
	status codes.Code
}

func (s stubSpan) snapshot() sdktrace.ReadOnlySpan {
	return tracetest.SpanStub{
		Name: "stub",
		SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    testTraceID,
			SpanID:     trace.SpanID{0, 0, 0, 0, 0, 0, 0, s.spanID},
			TraceFlags: trace.FlagsSampled,
		}),
		StartTime:  testEpoch.Add(s.start),
		EndTime:    testEpoch.Add(s.end),
		Attributes: s.attrs,
		Status:     sdktrace.Status{Code: s.status},
	}.Snapshot()
}

func infoFor(first, span sdktrace.ReadOnlySpan, ev SpanEvent) SpanSamplingInfo {
	return SpanSamplingInfo{
		span:   span,
		ctx:    context.Background(),
		event:  ev,
		buffer: newTraceBuffer(first),
	}
}

func TestSpanSamplingInfo_Level(t *testing.T) {
	cases := []struct {
		name string
		span stubSpan
		want int64
	}{
		{"numeric attribute", stubSpan{attrs: []attribute.KeyValue{LevelAttr(LevelWarn)}}, 13},
		{"named attribute", stubSpan{attrs: []attribute.KeyValue{LevelAttrKey.String("fatal")}}, 21},
		{"unknown number", stubSpan{attrs: []attribute.KeyValue{LevelNumAttr(3)}}, 3},
		{"bad name", stubSpan{attrs: []attribute.KeyValue{LevelAttrKey.String("loud")}}, 0},
		{"error status", stubSpan{status: codes.Error}, 17},
		{"attribute wins over status", stubSpan{attrs: []attribute.KeyValue{LevelAttr(LevelDebug)}, status: codes.Error}, 5},
		{"default", stubSpan{status: codes.Ok}, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.span.snapshot()
			info := infoFor(s, s, EventEnd)
			assert.Equal(t, tc.want, info.Level().Number())
		})
	}
}

func TestSpanSamplingInfo_Duration(t *testing.T) {
	root := stubSpan{spanID: 1, start: 0, end: 10 * time.Second}.snapshot()
	child := stubSpan{spanID: 2, start: 2 * time.Second, end: 7 * time.Second}.snapshot()

	assert.Equal(t, 2*time.Second, infoFor(root, child, EventStart).Duration())
	assert.Equal(t, 7*time.Second, infoFor(root, child, EventEnd).Duration())
	assert.Equal(t, 10*time.Second, infoFor(root, root, EventEnd).Duration())
	assert.Equal(t, time.Duration(0), infoFor(root, root, EventStart).Duration())

	early := stubSpan{spanID: 3, start: -time.Second, end: -time.Second}.snapshot()
	assert.Equal(t, time.Duration(0), infoFor(root, early, EventStart).Duration())
}

func TestSpanSamplingInfo_Accessors(t *testing.T) {
	s := stubSpan{spanID: 1}.snapshot()
	info := infoFor(s, s, EventStart)
	assert.Equal(t, testTraceID, info.TraceID())
	assert.Equal(t, EventStart, info.Event())
	assert.Same(t, info.Buffer(), info.buffer)
	assert.Equal(t, s, info.Span())
	assert.NotNil(t, info.Context())

	assert.Equal(t, "start", EventStart.String())
	assert.Equal(t, "end", EventEnd.String())
	assert.Equal(t, "unknown", SpanEvent(0).String())
}

func TestTraceBuffer(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("buffer")

	ctx, root := tracer.Start(context.Background(), "root")
	_, child := tracer.Start(ctx, "child")
	child.End()
	root.End()

	started := rec.Started()
	ended := rec.Ended()
	require.Len(t, started, 2)
	require.Len(t, ended, 2)

	buf := newTraceBuffer(started[0])
	buf.appendStart(started[0], context.Background())
	buf.appendStart(started[1], ctx)
	buf.appendEnd(ended[0])

	assert.Equal(t, root.SpanContext().TraceID(), buf.TraceID())
	assert.Equal(t, "root", buf.FirstSpan().Name())
	assert.Equal(t, 3, buf.Len())
	assert.Len(t, buf.Started(), 2)
	assert.Len(t, buf.Ended(), 1)

	// 结束快照与开始对象不同，按 SpanID 判断
	assert.False(t, buf.isFirst(ended[0]))
	assert.True(t, buf.isFirst(ended[1]))

	assert.Equal(t, ctx, buf.parentOf(child.SpanContext().SpanID()))
	assert.Nil(t, buf.parentOf(trace.SpanID{9}))

	// 只有开始过的 span 结束时才减少未结束计数
	assert.Equal(t, 1, buf.Open())
	buf.appendEnd(stubSpan{spanID: 9}.snapshot())
	assert.Equal(t, 1, buf.Open())
	buf.appendEnd(ended[1])
	assert.Zero(t, buf.Open())

	// 副本不影响缓冲
	cp := buf.Started()
	cp[0] = StartEvent{}
	assert.Equal(t, "root", buf.Started()[0].Span.Name())
}

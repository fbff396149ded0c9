package xtailsample

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/omeyang/xtail/pkg/observability/xsampling"
)

func TestErrorOrDuration_Defaults(t *testing.T) {
	opts, err := ErrorOrDuration()
	require.NoError(t, err)
	require.NoError(t, opts.Validate())
	assert.Equal(t, 1.0, opts.Head)
	assert.Nil(t, opts.HeadSampler)

	root := stubSpan{spanID: 1, end: time.Second}.snapshot()

	cases := []struct {
		name string
		span stubSpan
		ev   SpanEvent
		want float64
	}{
		{"quiet", stubSpan{spanID: 2, end: time.Second}, EventEnd, 0},
		{"info level", stubSpan{spanID: 2, attrs: []attribute.KeyValue{LevelAttr(LevelInfo)}}, EventStart, 0},
		{"notice level", stubSpan{spanID: 2, attrs: []attribute.KeyValue{LevelAttr(LevelNotice)}}, EventStart, 1},
		{"error status", stubSpan{spanID: 2, status: codes.Error}, EventEnd, 1},
		{"unknown level", stubSpan{spanID: 2, attrs: []attribute.KeyValue{LevelNumAttr(99)}}, EventStart, 0},
		{"exactly threshold", stubSpan{spanID: 2, end: 5 * time.Second}, EventEnd, 0},
		{"over threshold", stubSpan{spanID: 2, end: 5*time.Second + time.Millisecond}, EventEnd, 1},
		{"slow start is not an end", stubSpan{spanID: 2, end: time.Minute}, EventStart, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := infoFor(root, tc.span.snapshot(), tc.ev)
			assert.Equal(t, tc.want, opts.Tail(info))
		})
	}
}

func TestErrorOrDuration_Options(t *testing.T) {
	opts, err := ErrorOrDuration(
		WithLevelThreshold(LevelError),
		WithDurationThreshold(time.Second),
		WithHead(0.5),
		WithTailSampleRate(0.25),
		WithBackgroundRate(0.1),
	)
	require.NoError(t, err)
	assert.Equal(t, 0.5, opts.Head)

	root := stubSpan{spanID: 1}.snapshot()
	warn := stubSpan{spanID: 2, attrs: []attribute.KeyValue{LevelAttr(LevelWarn)}}.snapshot()
	fatal := stubSpan{spanID: 3, attrs: []attribute.KeyValue{LevelAttr(LevelFatal)}}.snapshot()
	slow := stubSpan{spanID: 4, end: 2 * time.Second}.snapshot()

	assert.Equal(t, 0.1, opts.Tail(infoFor(root, warn, EventStart)))
	assert.Equal(t, 0.25, opts.Tail(infoFor(root, fatal, EventStart)))
	assert.Equal(t, 0.25, opts.Tail(infoFor(root, slow, EventEnd)))
}

func TestErrorOrDuration_Disabled(t *testing.T) {
	opts, err := ErrorOrDuration(WithoutLevelThreshold(), WithoutDurationThreshold())
	require.NoError(t, err)

	root := stubSpan{spanID: 1}.snapshot()
	loud := stubSpan{spanID: 2, end: time.Hour, status: codes.Error}.snapshot()
	assert.Equal(t, 0.0, opts.Tail(infoFor(root, loud, EventEnd)))

	// 关闭后不再校验级别名
	_, err = ErrorOrDuration(WithLevelThreshold("critical"), WithoutLevelThreshold())
	assert.NoError(t, err)
}

func TestErrorOrDuration_HeadSampler(t *testing.T) {
	head, err := xsampling.NewRatioSampler(0.1)
	require.NoError(t, err)

	opts, err := ErrorOrDuration(WithHeadSampler(head), WithBackgroundRate(0.5))
	require.NoError(t, err)
	assert.Same(t, head, opts.Sampler())

	root := stubSpan{spanID: 1}.snapshot()
	errSpan := stubSpan{spanID: 2, status: codes.Error}.snapshot()
	assert.Equal(t, 1.0, opts.Tail(infoFor(root, errSpan, EventEnd)), "tail defaults to 1.0 with a head sampler")
}

func TestErrorOrDuration_Invalid(t *testing.T) {
	cases := []struct {
		name string
		opts []PolicyOption
		want error
	}{
		{"nil option", []PolicyOption{nil}, ErrNilOption},
		{"unknown level", []PolicyOption{WithLevelThreshold("critical")}, ErrUnknownLevel},
		{"negative duration", []PolicyOption{WithDurationThreshold(-time.Second)}, ErrInvalidDuration},
		{"head out of range", []PolicyOption{WithHead(1.5)}, xsampling.ErrInvalidRate},
		{"tail NaN", []PolicyOption{WithTailSampleRate(math.NaN())}, xsampling.ErrInvalidRate},
		{"negative background", []PolicyOption{WithBackgroundRate(-0.1)}, xsampling.ErrInvalidRate},
		{"tail above head", []PolicyOption{WithHead(0.5), WithTailSampleRate(0.6)}, ErrRateOrder},
		{"background above tail", []PolicyOption{WithTailSampleRate(0.2), WithBackgroundRate(0.3)}, ErrRateOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ErrorOrDuration(tc.opts...)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSamplingOptions_Validate(t *testing.T) {
	assert.ErrorIs(t, SamplingOptions{Head: 1}.Validate(), ErrNilTail)

	tail := func(SpanSamplingInfo) float64 { return 1 }
	assert.ErrorIs(t, SamplingOptions{Head: 2, Tail: tail}.Validate(), xsampling.ErrInvalidRate)
	assert.NoError(t, SamplingOptions{Head: 2, HeadSampler: xsampling.Always(), Tail: tail}.Validate())
}

func TestSamplingOptions_Sampler(t *testing.T) {
	tail := func(SpanSamplingInfo) float64 { return 1 }

	s := SamplingOptions{Head: 0.25, Tail: tail}.Sampler()
	assert.Contains(t, s.Description(), "ParentBased")
	assert.Contains(t, s.Description(), "xsampling.Ratio{0.25}")

	full := SamplingOptions{Head: 1, Tail: tail}.Sampler()
	assert.Contains(t, full.Description(), "xsampling.Always")

	assert.Equal(t, xsampling.Never(), SamplingOptions{Head: -1, Tail: tail}.Sampler())
}

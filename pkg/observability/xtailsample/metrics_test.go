package xtailsample_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtail/pkg/observability/xtailsample"
)

// collectSums 返回 指标名 -> 编码后的属性 -> 值
func collectSums(t *testing.T, reader sdkmetric.Reader) map[string]map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			points := map[string]int64{}
			for _, dp := range sum.DataPoints {
				points[dp.Attributes.Encoded(attribute.DefaultEncoder())] = dp.Value
			}
			out[m.Name] = points
		}
	}
	return out
}

func TestProcessor_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { assert.NoError(t, mp.Shutdown(context.Background())) })

	h := newHarness(t, mustErrorOrDuration(t), xtailsample.WithMeterProvider(mp))

	// 保留：error 子 span 开始时 flush 2 个开始事件，之后 2 个结束事件透传
	ctx, root := h.start(context.Background(), "kept", 0)
	_, child := h.start(ctx, "failing", time.Millisecond,
		trace.WithAttributes(xtailsample.LevelAttr(xtailsample.LevelError)))
	end(child, 2*time.Millisecond)
	end(root, 3*time.Millisecond)

	// 丢弃：开始、结束两个事件
	_, quiet := h.start(context.Background(), "quiet", 0)
	end(quiet, time.Millisecond)

	// 未决：关闭时丢弃
	h.start(context.Background(), "pending", 0)
	require.Equal(t, 1, h.proc.PendingTraces())

	sums := collectSums(t, reader)
	assert.Equal(t, map[string]int64{
		"decision=keep,event=start": 1,
		"decision=drop,event=end":   1,
	}, sums["xtail.trace.decisions"])
	assert.Equal(t, map[string]int64{
		"mode=flush": 2,
		"mode=live":  2,
	}, sums["xtail.spans.forwarded"])
	assert.Equal(t, map[string]int64{"": 2}, sums["xtail.spans.discarded"])
	assert.Equal(t, map[string]int64{"": 1}, sums["xtail.traces.pending"])

	require.NoError(t, h.proc.Shutdown(context.Background()))
	sums = collectSums(t, reader)
	assert.Equal(t, map[string]int64{"": 3}, sums["xtail.spans.discarded"])
	assert.Equal(t, map[string]int64{"": 0}, sums["xtail.traces.pending"])
}

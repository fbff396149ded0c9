package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricSums 收集所有 int64 求和型指标，key 形如 name{k=v,...}
func metricSums(ctx context.Context, reader sdkmetric.Reader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.WithoutCancel(ctx), &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				key := m.Name
				if attrs := dp.Attributes.Encoded(attribute.DefaultEncoder()); attrs != "" {
					key += "{" + attrs + "}"
				}
				sums[key] += dp.Value
			}
		}
	}
	return sums, nil
}

func printReport(w io.Writer, r simReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run id:         %s\n", r.runID)
	fmt.Fprintf(&b, "traces:         %d (error=%d slow=%d)\n", r.traces, r.errorTraces, r.slowTraces)
	fmt.Fprintf(&b, "kept traces:    %d\n", r.keptTraces)
	fmt.Fprintf(&b, "exported spans: %d\n", r.exportedSpans)
	fmt.Fprintf(&b, "pending:        %d\n", r.pending)

	keys := make([]string, 0, len(r.sums))
	for k := range r.sums {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "metric %s = %d\n", k, r.sums[k])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

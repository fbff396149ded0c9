package xlog

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// 追踪字段 key，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
)

// EnrichHandler 自动从 context 中的 OpenTelemetry span 提取 trace_id、span_id 并注入日志
//
// 装饰模式实现，包装底层 slog.Handler。context 中没有有效 span 时不注入任何字段。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler，base 为 nil 时返回 nil
func NewEnrichHandler(base slog.Handler) *EnrichHandler {
	if base == nil {
		return nil
	}
	return &EnrichHandler{base: base}
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 在调用底层 handler 前注入追踪字段
//
// 根据 slog 契约，必须 Clone record 后再修改，避免影响其他 handler。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r = r.Clone()
		r.AddAttrs(
			slog.String(KeyTraceID, sc.TraceID().String()),
			slog.String(KeySpanID, sc.SpanID().String()),
		)
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}

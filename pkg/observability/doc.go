// Package observability 提供链路采样相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xsampling: 头部采样策略与确定性比率判定
//   - xtailsample: 尾部采样 SpanProcessor
//
// 设计原则：
//   - 遵循 OpenTelemetry SDK 接口，可直接注册到 TracerProvider
//   - 同一 trace ID 在各进程得到相同的比率判定
package observability

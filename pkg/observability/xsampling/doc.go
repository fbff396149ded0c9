// Package xsampling 提供基于 trace ID 的确定性比率判定与 OpenTelemetry 头部采样器。
//
// # 比率判定
//
// [TraceIDRatio] 是整个仓库唯一的比率判定实现，头部采样与尾部采样共用：
//
//   - 取 trace ID 低 8 字节（大端序），右移 1 位得到 [0, 2^63) 内的均匀值
//   - 当该值 < rate * 2^63 时保留
//   - rate <= 0（含 NaN）永不保留，rate >= 1 总是保留
//
// 与 sdktrace.TraceIDRatioBased 使用相同的位，因此：
//
//   - 确定性：同一 trace ID、同一 rate 的多次判定结果一致
//   - 单调性：对固定 trace ID，rate1 <= rate2 时 rate1 保留蕴含 rate2 保留
//   - 可组合：头部以 h 放行、尾部以 r (r <= h) 复检的 trace，最终保留概率为 r
//
// # 头部采样器
//
// 所有采样器都实现 sdktrace.Sampler，可直接传给 sdktrace.WithSampler：
//
//   - Always() / Never(): 全采样 / 不采样
//   - NewRatioSampler(rate): 基于 TraceIDRatio 的比率采样
//   - NewKeyBasedSampler(rate, key): 按起始属性值（如 tenant_id）一致性采样（xxhash）
//   - All(...) / Any(...): AND / OR 组合
//
// # 并发安全
//
// 所有采样器都是无状态或只读的，可在多个 goroutine 中同时使用。
package xsampling

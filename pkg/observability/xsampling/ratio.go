package xsampling

import (
	"encoding/binary"
	"math"

	"go.opentelemetry.io/otel/trace"
)

// ratioScale 将 [0,1] 比率映射到 63 位整数空间
const ratioScale = 1 << 63

// ValidateRate 校验采样比率
//
// rate 必须在 [0.0, 1.0] 范围内，NaN 视为非法。
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}

// TraceIDRatio 判断 trace ID 在给定比率下是否应保留
//
// 取 trace ID 低 8 字节的大端序整数右移 1 位，视为 [0,1) 内的均匀分数，
// 当其小于 rate 时返回 true。
//
// 边界：
//   - rate <= 0 或 NaN: 总是 false
//   - rate >= 1: 总是 true
//
// 对同一 trace ID，结果随 rate 单调不减：比率只会把“未保留”翻转为“保留”。
func TraceIDRatio(id trace.TraceID, rate float64) bool {
	if !(rate > 0) {
		return false
	}
	if rate >= 1 {
		return true
	}
	bound := uint64(rate * ratioScale)
	x := binary.BigEndian.Uint64(id[8:16]) >> 1
	return x < bound
}

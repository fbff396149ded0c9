package xsampling

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// KeyBasedOption 配置 KeyBasedSampler 的可选参数
type KeyBasedOption func(*KeyBasedSampler)

// WithOnMissingKey 设置属性缺失回调函数
//
// 当 span 起始属性中没有配置的 key（或值为空字符串）时，在回退到
// trace ID 比率判定前调用此回调，用于指标计数，帮助发现埋点遗漏。
//
// 回调未做 recover 隔离，panic 会直接传播到 ShouldSample 调用方。
// 回调应当轻量（如原子计数器递增）。nil 回调会被忽略。
func WithOnMissingKey(fn func()) KeyBasedOption {
	return func(s *KeyBasedSampler) {
		if fn != nil {
			s.onMissingKey = fn
		}
	}
}

// KeyBasedSampler 基于起始属性值的一致性采样策略
//
// 对同一属性值，在相同 rate 下总是产生相同的采样决策，例如：
//   - 按 tenant_id 采样，确保同一租户的链路采样行为一致
//   - 按 user_id 采样，便于完整复现单个用户的请求
//
// 属性值使用 xxhash 哈希，跨进程确定。属性缺失时回退到 [TraceIDRatio]，
// 仍保持采样率语义与同一 trace 内的一致性。
type KeyBasedSampler struct {
	rate         float64
	key          attribute.Key
	onMissingKey func()
	description  string
}

// NewKeyBasedSampler 创建基于属性 key 的一致性采样器
//
// rate 超出 [0.0, 1.0] 或为 NaN 时返回 ErrInvalidRate；key 为空返回 ErrEmptyKey；
// nil option 返回 ErrNilOption。
//
// 示例：
//
//	sampler, err := xsampling.NewKeyBasedSampler(0.1, "tenant_id")
//	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.ParentBased(sampler)))
func NewKeyBasedSampler(rate float64, key attribute.Key, opts ...KeyBasedOption) (*KeyBasedSampler, error) {
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	s := &KeyBasedSampler{
		rate:        rate,
		key:         key,
		description: fmt.Sprintf("xsampling.KeyBased{%s,%g}", key, rate),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(s)
	}
	return s, nil
}

func (s *KeyBasedSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	decision := sdktrace.Drop
	if s.sample(p) {
		decision = sdktrace.RecordAndSample
	}
	return sdktrace.SamplingResult{
		Decision:   decision,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}
}

func (s *KeyBasedSampler) sample(p sdktrace.SamplingParameters) bool {
	if s.rate <= 0 {
		return false
	}
	if s.rate >= 1 {
		return true
	}

	value := s.lookup(p.Attributes)
	if value == "" {
		if s.onMissingKey != nil {
			s.onMissingKey()
		}
		return TraceIDRatio(p.TraceID, s.rate)
	}

	// float64 精度有限，hash == MaxUint64 时 normalized 可能等于 1.0，
	// 但 rate < 1 时不会通过比较，行为正确。
	normalized := float64(xxhash.Sum64String(value)) / float64(math.MaxUint64)
	return normalized < s.rate
}

// lookup 在起始属性中查找 key，非字符串值使用其 Emit 形式
func (s *KeyBasedSampler) lookup(attrs []attribute.KeyValue) string {
	for _, kv := range attrs {
		if kv.Key == s.key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func (s *KeyBasedSampler) Description() string {
	return s.description
}

// Rate 返回当前采样比率
func (s *KeyBasedSampler) Rate() float64 {
	return s.rate
}

// Key 返回采样依据的属性 key
func (s *KeyBasedSampler) Key() attribute.Key {
	return s.key
}

// 确保实现了接口
var _ sdktrace.Sampler = (*KeyBasedSampler)(nil)

package xsampling

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// alwaysSampler 全采样策略
type alwaysSampler struct{}

// alwaysSamplerInstance 全采样单例
var alwaysSamplerInstance = &alwaysSampler{}

// Always 返回全采样策略
//
// 所有 span 都会被记录并采样，适用于调试或完全交给尾部采样决策的场景。
func Always() sdktrace.Sampler {
	return alwaysSamplerInstance
}

func (s *alwaysSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	return sdktrace.SamplingResult{
		Decision:   sdktrace.RecordAndSample,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}
}

func (s *alwaysSampler) Description() string {
	return "xsampling.Always"
}

// neverSampler 不采样策略
type neverSampler struct{}

// neverSamplerInstance 不采样单例
var neverSamplerInstance = &neverSampler{}

// Never 返回不采样策略
func Never() sdktrace.Sampler {
	return neverSamplerInstance
}

func (s *neverSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	return sdktrace.SamplingResult{
		Decision:   sdktrace.Drop,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}
}

func (s *neverSampler) Description() string {
	return "xsampling.Never"
}

// RatioSampler 基于 trace ID 的固定比率采样策略
//
// 判定由 [TraceIDRatio] 完成，因此与尾部采样使用同一套位运算，
// 头部放行的 trace 在尾部以更低比率复检时结果保持一致。
//
// 设计决策: 工厂函数返回具体类型而非 sdktrace.Sampler 接口，因为 Rate() 方法提供了
// 有用的自省能力（如日志、调试），这些无法通过接口获得。
type RatioSampler struct {
	rate        float64
	description string
}

// NewRatioSampler 创建比率采样器
//
// rate 表示采样比率，范围 [0.0, 1.0]：
//   - rate=0.0: 等同于 Never()
//   - rate=1.0: 等同于 Always()
//
// rate 超出范围或为 NaN 时返回 ErrInvalidRate。
func NewRatioSampler(rate float64) (*RatioSampler, error) {
	if err := ValidateRate(rate); err != nil {
		return nil, err
	}
	return &RatioSampler{
		rate:        rate,
		description: fmt.Sprintf("xsampling.Ratio{%g}", rate),
	}, nil
}

func (s *RatioSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	decision := sdktrace.Drop
	if TraceIDRatio(p.TraceID, s.rate) {
		decision = sdktrace.RecordAndSample
	}
	return sdktrace.SamplingResult{
		Decision:   decision,
		Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
	}
}

func (s *RatioSampler) Description() string {
	return s.description
}

// Rate 返回当前采样比率
func (s *RatioSampler) Rate() float64 {
	return s.rate
}

// 确保实现了接口
var (
	_ sdktrace.Sampler = (*alwaysSampler)(nil)
	_ sdktrace.Sampler = (*neverSampler)(nil)
	_ sdktrace.Sampler = (*RatioSampler)(nil)
)

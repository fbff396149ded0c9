package xsampling

import (
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// CompositeMode 组合采样模式
type CompositeMode int

const (
	// ModeAND 要求所有子采样器都采样
	//
	// 空列表时采样（逻辑与的恒等元）
	ModeAND CompositeMode = iota

	// ModeOR 任一子采样器采样即采样
	//
	// 空列表时不采样（逻辑或的恒等元）
	ModeOR
)

// String 返回组合模式的字符串表示
func (m CompositeMode) String() string {
	switch m {
	case ModeAND:
		return "AND"
	case ModeOR:
		return "OR"
	default:
		return "Unknown"
	}
}

// CompositeSampler 组合采样策略
//
// 使用短路求值：AND 遇到未采样立即返回，OR 遇到采样立即返回。
// 子采样器返回的附加属性只保留决定结果的那一个。
type CompositeSampler struct {
	samplers []sdktrace.Sampler
	mode     CompositeMode
}

func newComposite(mode CompositeMode, samplers []sdktrace.Sampler) (*CompositeSampler, error) {
	for _, s := range samplers {
		if s == nil {
			return nil, ErrNilSampler
		}
	}
	// 复制切片以防止外部修改
	copied := make([]sdktrace.Sampler, len(samplers))
	copy(copied, samplers)
	return &CompositeSampler{samplers: copied, mode: mode}, nil
}

// All 创建 AND 组合采样器，nil 子采样器返回 ErrNilSampler
func All(samplers ...sdktrace.Sampler) (*CompositeSampler, error) {
	return newComposite(ModeAND, samplers)
}

// Any 创建 OR 组合采样器，nil 子采样器返回 ErrNilSampler
//
// 示例：
//
//	ratio, _ := xsampling.NewRatioSampler(0.01)
//	vip, _ := xsampling.NewKeyBasedSampler(1.0, "vip_tenant")
//	sampler, err := xsampling.Any(ratio, vip)
func Any(samplers ...sdktrace.Sampler) (*CompositeSampler, error) {
	return newComposite(ModeOR, samplers)
}

func (s *CompositeSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if len(s.samplers) == 0 {
		decision := sdktrace.Drop
		if s.mode == ModeAND {
			decision = sdktrace.RecordAndSample
		}
		return sdktrace.SamplingResult{
			Decision:   decision,
			Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
		}
	}

	var last sdktrace.SamplingResult
	for _, sampler := range s.samplers {
		last = sampler.ShouldSample(p)
		sampled := last.Decision == sdktrace.RecordAndSample
		if s.mode == ModeAND && !sampled {
			return last
		}
		if s.mode == ModeOR && sampled {
			return last
		}
	}
	return last
}

func (s *CompositeSampler) Description() string {
	names := make([]string, 0, len(s.samplers))
	for _, sampler := range s.samplers {
		names = append(names, sampler.Description())
	}
	return "xsampling." + s.mode.String() + "{" + strings.Join(names, ",") + "}"
}

// Mode 返回组合模式
func (s *CompositeSampler) Mode() CompositeMode {
	return s.mode
}

// Samplers 返回子采样器列表（只读副本）
func (s *CompositeSampler) Samplers() []sdktrace.Sampler {
	copied := make([]sdktrace.Sampler, len(s.samplers))
	copy(copied, s.samplers)
	return copied
}

// 确保实现了接口
var _ sdktrace.Sampler = (*CompositeSampler)(nil)

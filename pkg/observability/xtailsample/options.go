package xtailsample

import (
	"fmt"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtail/pkg/observability/xsampling"
)

// TailFunc 尾部决策函数，返回 [0,1] 内的保留比率
//
// 在 Processor 的锁内调用，必须快速返回且不能阻塞。panic 会传播给调用方。
type TailFunc func(info SpanSamplingInfo) float64

// SamplingOptions 采样配置
//
// Head/HeadSampler 只用于构建上游 TracerProvider 的头部采样器，
// Processor 只使用 Tail。
type SamplingOptions struct {
	// Head 头部采样比率，HeadSampler 非 nil 时忽略
	Head float64

	// HeadSampler 自定义头部采样器
	HeadSampler sdktrace.Sampler

	// Tail 尾部决策函数
	Tail TailFunc
}

// Validate 校验配置
func (o SamplingOptions) Validate() error {
	if o.Tail == nil {
		return ErrNilTail
	}
	if o.HeadSampler == nil {
		if err := xsampling.ValidateRate(o.Head); err != nil {
			return fmt.Errorf("head: %w", err)
		}
	}
	return nil
}

// Sampler 返回传给 sdktrace.WithSampler 的头部采样器
//
// HeadSampler 优先；Head 为 1 时为 ParentBased(Always)，否则为 ParentBased(Ratio(Head))。
// Head 非法时返回 Never，
// 调用方应先 Validate。
func (o SamplingOptions) Sampler() sdktrace.Sampler {
	if o.HeadSampler != nil {
		return o.HeadSampler
	}
	if o.Head == 1 {
		return sdktrace.ParentBased(xsampling.Always())
	}
	ratio, err := xsampling.NewRatioSampler(o.Head)
	if err != nil {
		return xsampling.Never()
	}
	return sdktrace.ParentBased(ratio)
}

// 策略默认值
const (
	DefaultLevelThreshold    = LevelNotice
	DefaultDurationThreshold = 5 * time.Second
	DefaultHeadRate          = 1.0
	DefaultBackgroundRate    = 0.0
)

type policyConfig struct {
	level       LevelName
	useLevel    bool
	duration    time.Duration
	useDuration bool
	head        float64
	headSampler sdktrace.Sampler
	tail        *float64
	background  float64
}

// PolicyOption ErrorOrDuration 的配置选项
type PolicyOption func(*policyConfig)

// WithLevelThreshold 级别达到 name 时以 tail 比率保留，默认 notice
func WithLevelThreshold(name LevelName) PolicyOption {
	return func(c *policyConfig) {
		c.level = name
		c.useLevel = true
	}
}

// WithoutLevelThreshold 关闭级别判定
func WithoutLevelThreshold() PolicyOption {
	return func(c *policyConfig) { c.useLevel = false }
}

// WithDurationThreshold 耗时严格超过 d 时以 tail 比率保留，默认 5s
func WithDurationThreshold(d time.Duration) PolicyOption {
	return func(c *policyConfig) {
		c.duration = d
		c.useDuration = true
	}
}

// WithoutDurationThreshold 关闭耗时判定
func WithoutDurationThreshold() PolicyOption {
	return func(c *policyConfig) { c.useDuration = false }
}

// WithHead 头部采样比率，默认 1.0
func WithHead(rate float64) PolicyOption {
	return func(c *policyConfig) {
		c.head = rate
		c.headSampler = nil
	}
}

// WithHeadSampler 自定义头部采样器，此时 tail 比率默认 1.0
func WithHeadSampler(s sdktrace.Sampler) PolicyOption {
	return func(c *policyConfig) { c.headSampler = s }
}

// WithTailSampleRate 命中阈值时的保留比率，默认等于头部比率
//
// 头部与尾部共用 trace ID 的同一段位，head 放行后以 rate 复检，
// 最终保留概率就是 rate。
func WithTailSampleRate(rate float64) PolicyOption {
	return func(c *policyConfig) { c.tail = &rate }
}

// WithBackgroundRate 未命中任何阈值时的保留比率，默认 0.0
func WithBackgroundRate(rate float64) PolicyOption {
	return func(c *policyConfig) { c.background = rate }
}

// ErrorOrDuration 构建“错误或慢请求”尾部采样策略
//
// span 级别 >= 级别阈值，或耗时 > 耗时阈值时返回 tail 比率，否则返回
// background 比率。比率需满足 0 <= background <= tail <= head <= 1。
func ErrorOrDuration(opts ...PolicyOption) (SamplingOptions, error) {
	cfg := policyConfig{
		level:       DefaultLevelThreshold,
		useLevel:    true,
		duration:    DefaultDurationThreshold,
		useDuration: true,
		head:        DefaultHeadRate,
		background:  DefaultBackgroundRate,
	}
	for _, opt := range opts {
		if opt == nil {
			return SamplingOptions{}, ErrNilOption
		}
		opt(&cfg)
	}

	if cfg.useLevel {
		if _, ok := cfg.level.Number(); !ok {
			return SamplingOptions{}, fmt.Errorf("%w: %q", ErrUnknownLevel, cfg.level)
		}
	}
	if cfg.useDuration && cfg.duration < 0 {
		return SamplingOptions{}, ErrInvalidDuration
	}

	head := cfg.head
	if cfg.headSampler != nil {
		head = 1.0
	}
	tail := head
	if cfg.tail != nil {
		tail = *cfg.tail
	}
	for _, r := range []struct {
		name string
		rate float64
	}{{"head", head}, {"tail", tail}, {"background", cfg.background}} {
		if err := xsampling.ValidateRate(r.rate); err != nil {
			return SamplingOptions{}, fmt.Errorf("%s: %w", r.name, err)
		}
	}
	if cfg.background > tail || tail > head {
		return SamplingOptions{}, fmt.Errorf("%w: background=%g tail=%g head=%g",
			ErrRateOrder, cfg.background, tail, head)
	}

	var (
		level       = cfg.level
		useLevel    = cfg.useLevel
		threshold   = cfg.duration
		useDuration = cfg.useDuration
		background  = cfg.background
	)
	return SamplingOptions{
		Head:        head,
		HeadSampler: cfg.headSampler,
		Tail: func(info SpanSamplingInfo) float64 {
			if useDuration && info.Duration() > threshold {
				return tail
			}
			if useLevel && info.Level().Ge(level) {
				return tail
			}
			return background
		},
	}, nil
}

package xconf

import (
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xtail/pkg/observability/xlog"
	"github.com/omeyang/xtail/pkg/observability/xsampling"
	"github.com/omeyang/xtail/pkg/observability/xtailsample"
)

// Validate 校验配置值。
func (c *Config) Validate() error {
	if _, err := c.SamplingOptions(); err != nil {
		return err
	}
	if c.DecisionCache.Kept <= 0 || c.DecisionCache.Dropped < 0 {
		return fmt.Errorf("%w: decision_cache kept=%d dropped=%d",
			ErrInvalidConfig, c.DecisionCache.Kept, c.DecisionCache.Dropped)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SamplingOptions 根据策略配置构建 xtailsample.SamplingOptions。
func (c *Config) SamplingOptions() (xtailsample.SamplingOptions, error) {
	s := c.Sampling
	policy := strings.ToLower(strings.TrimSpace(s.Policy))

	var opts []xtailsample.PolicyOption
	head, err := s.headSampler()
	if err != nil {
		return xtailsample.SamplingOptions{}, fmt.Errorf("%w: sampling.head: %w", ErrInvalidConfig, err)
	}
	if head != nil {
		opts = append(opts, xtailsample.WithHeadSampler(sdktrace.ParentBased(head)))
	} else {
		opts = append(opts, xtailsample.WithHead(s.HeadRate))
	}
	if s.TailRate != nil {
		opts = append(opts, xtailsample.WithTailSampleRate(*s.TailRate))
	}

	switch policy {
	case "", PolicyErrorOrDuration:
		if s.DisableLevel {
			opts = append(opts, xtailsample.WithoutLevelThreshold())
		} else {
			level, err := xtailsample.ParseLevelName(s.LevelThreshold)
			if err != nil {
				return xtailsample.SamplingOptions{}, fmt.Errorf("%w: sampling.level_threshold: %w", ErrInvalidConfig, err)
			}
			opts = append(opts, xtailsample.WithLevelThreshold(level))
		}
		if s.DisableDuration {
			opts = append(opts, xtailsample.WithoutDurationThreshold())
		} else {
			opts = append(opts, xtailsample.WithDurationThreshold(s.DurationThreshold))
		}
		opts = append(opts, xtailsample.WithBackgroundRate(s.BackgroundRate))
	case PolicyAlways:
		opts = append(opts,
			xtailsample.WithoutLevelThreshold(),
			xtailsample.WithoutDurationThreshold(),
			xtailsample.WithBackgroundRate(s.effectiveTail()),
		)
	case PolicyNever:
		opts = append(opts,
			xtailsample.WithoutLevelThreshold(),
			xtailsample.WithoutDurationThreshold(),
			xtailsample.WithBackgroundRate(0),
		)
	default:
		return xtailsample.SamplingOptions{}, fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownPolicy, s.Policy)
	}

	so, err := xtailsample.ErrorOrDuration(opts...)
	if err != nil {
		return xtailsample.SamplingOptions{}, fmt.Errorf("%w: sampling: %w", ErrInvalidConfig, err)
	}
	return so, nil
}

// headKeys 合并 head_key 与 head_keys，去掉空值与重复项
func (s SamplingConfig) headKeys() []string {
	var keys []string
	for _, k := range append([]string{s.HeadKey}, s.HeadKeys...) {
		k = strings.TrimSpace(k)
		if k != "" && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// headSampler 按 key 构建头部采样器，没有 key 时返回 nil（使用纯比率）
//
// 单个 key 直接使用 KeyBasedSampler；多个 key 按 head_combine 用 Any/All 组合。
func (s SamplingConfig) headSampler() (sdktrace.Sampler, error) {
	keys := s.headKeys()
	if len(keys) == 0 {
		return nil, nil
	}
	samplers := make([]sdktrace.Sampler, 0, len(keys))
	for _, k := range keys {
		kb, err := xsampling.NewKeyBasedSampler(s.HeadRate, attribute.Key(k))
		if err != nil {
			return nil, err
		}
		samplers = append(samplers, kb)
	}
	if len(samplers) == 1 {
		return samplers[0], nil
	}
	switch strings.ToLower(strings.TrimSpace(s.HeadCombine)) {
	case "", CombineAny:
		return xsampling.Any(samplers...)
	case CombineAll:
		return xsampling.All(samplers...)
	default:
		return nil, fmt.Errorf("unknown head_combine %q", s.HeadCombine)
	}
}

// effectiveTail 未显式配置 tail_rate 时跟随头部比率，自定义头部采样器时为 1.0。
func (s SamplingConfig) effectiveTail() float64 {
	switch {
	case s.TailRate != nil:
		return *s.TailRate
	case len(s.headKeys()) > 0:
		return 1.0
	default:
		return s.HeadRate
	}
}

// ProcessorOptions 返回决策缓存相关的处理器选项，日志与指标由调用方追加。
func (c *Config) ProcessorOptions() []xtailsample.Option {
	return []xtailsample.Option{
		xtailsample.WithKeptCacheSize(c.DecisionCache.Kept),
		xtailsample.WithDroppedCacheSize(c.DecisionCache.Dropped),
	}
}

func (l LogConfig) validate() error {
	if l.Level != "" {
		if _, err := xlog.ParseLevel(l.Level); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		return xlog.ErrInvalidRotation
	}
	return nil
}

// Builder 返回对应的 xlog.Builder，调用方可继续追加设置后 Build。
func (l LogConfig) Builder() *xlog.Builder {
	b := xlog.New().SetFormat(l.Format)
	if l.Level != "" {
		b.SetLevelString(l.Level)
	}
	if l.File != "" {
		b.SetRotation(l.File,
			xlog.WithMaxSizeMB(l.MaxSizeMB),
			xlog.WithMaxBackups(l.MaxBackups),
			xlog.WithMaxAgeDays(l.MaxAgeDays),
			xlog.WithCompress(l.Compress),
		)
	}
	return b
}

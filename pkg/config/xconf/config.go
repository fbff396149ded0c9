package xconf

import (
	"time"

	"github.com/omeyang/xtail/pkg/observability/xtailsample"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// 采样策略名称。
const (
	// PolicyErrorOrDuration 级别或耗时超过阈值时保留。
	PolicyErrorOrDuration = "error_or_duration"

	// PolicyAlways 保留全部 trace（尾部比率恒为 tail_rate）。
	PolicyAlways = "always"

	// PolicyNever 丢弃全部 trace。
	PolicyNever = "never"
)

// 多个头部 key 的组合方式。
const (
	// CombineAny 任一 key 的桶被采样即采样。
	CombineAny = "any"

	// CombineAll 所有 key 的桶都被采样才采样。
	CombineAll = "all"
)

// Config xtail 的完整配置。
type Config struct {
	Sampling      SamplingConfig `koanf:"sampling"`
	DecisionCache CacheConfig    `koanf:"decision_cache"`
	Log           LogConfig      `koanf:"log"`
}

// SamplingConfig 采样策略配置。
type SamplingConfig struct {
	Policy string `koanf:"policy"`

	// HeadRate 头部采样比率；配置了 key 时按属性值一致性采样。
	// HeadKey 与 HeadKeys 合并，多个 key 按 HeadCombine 组合。
	HeadRate    float64  `koanf:"head_rate"`
	HeadKey     string   `koanf:"head_key"`
	HeadKeys    []string `koanf:"head_keys"`
	HeadCombine string   `koanf:"head_combine"`

	// TailRate 命中阈值时的保留比率，nil 表示跟随头部比率。
	TailRate       *float64 `koanf:"tail_rate"`
	BackgroundRate float64  `koanf:"background_rate"`

	LevelThreshold    string        `koanf:"level_threshold"`
	DurationThreshold time.Duration `koanf:"duration_threshold"`
	DisableLevel      bool          `koanf:"disable_level"`
	DisableDuration   bool          `koanf:"disable_duration"`
}

// CacheConfig 决策缓存容量。
//
// Kept 只约束本地 span 已全部结束的保留 trace，进行中的保留 trace 不计入。
type CacheConfig struct {
	Kept    int `koanf:"kept"`
	Dropped int `koanf:"dropped"`
}

// LogConfig 日志配置，File 非空时输出到按大小轮转的文件。
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Sampling: SamplingConfig{
			Policy:            PolicyErrorOrDuration,
			HeadRate:          xtailsample.DefaultHeadRate,
			BackgroundRate:    xtailsample.DefaultBackgroundRate,
			LevelThreshold:    string(xtailsample.DefaultLevelThreshold),
			DurationThreshold: xtailsample.DefaultDurationThreshold,
		},
		DecisionCache: CacheConfig{
			Kept: xtailsample.DefaultKeptCacheSize,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 100,
		},
	}
}

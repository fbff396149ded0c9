package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xtail/pkg/config/xconf"
	"github.com/omeyang/xtail/pkg/observability/xlog"
	"github.com/omeyang/xtail/pkg/observability/xsampling"
)

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// configError 配置加载或校验失败，退出码 2。
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		createSimulateCommand(),
		createCheckCommand(),
		createRatioCommand(),
	}
}

// loadConfig 加载 --config 指定的配置，未指定时使用默认配置。
func loadConfig(cmd *cli.Command) (*xconf.Config, error) {
	path := cmd.String("config")
	if path == "" {
		return xconf.Default(), nil
	}
	cfg, err := xconf.Load(path)
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// buildLogger 按配置构建 Logger，命令行参数优先，并设为全局默认。
func buildLogger(cmd *cli.Command, cfg *xconf.Config) (xlog.LoggerWithLevel, func() error, error) {
	lc := cfg.Log
	if v := cmd.String("log-level"); v != "" {
		lc.Level = v
	}
	if v := cmd.String("log-format"); v != "" {
		lc.Format = v
	}
	b := lc.Builder()
	if lc.File == "" {
		b.SetOutput(cmd.Root().ErrWriter)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, nil, usagef("日志配置: %v", err)
	}
	xlog.SetDefault(logger)
	return logger, cleanup, nil
}

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:         "check",
		Usage:        "加载并校验配置，输出生效的采样策略",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return cmdCheck(cmd.Root().Writer, cfg)
		},
	}
}

// cmdCheck 输出配置中与采样相关的生效值。
func cmdCheck(w io.Writer, cfg *xconf.Config) error {
	opts, err := cfg.SamplingOptions()
	if err != nil {
		return &configError{err: err}
	}
	s := cfg.Sampling

	policy := s.Policy
	if policy == "" {
		policy = xconf.PolicyErrorOrDuration
	}
	tail := "= head"
	if s.TailRate != nil {
		tail = strconv.FormatFloat(*s.TailRate, 'g', -1, 64)
	}
	level := s.LevelThreshold
	if s.DisableLevel {
		level = "disabled"
	}
	duration := s.DurationThreshold.String()
	if s.DisableDuration {
		duration = "disabled"
	}

	lines := []string{
		"policy:             " + strings.ToLower(policy),
		"head sampler:       " + opts.Sampler().Description(),
		"tail rate:          " + tail,
		"background rate:    " + strconv.FormatFloat(s.BackgroundRate, 'g', -1, 64),
		"level threshold:    " + level,
		"duration threshold: " + duration,
		fmt.Sprintf("decision cache:     kept=%d dropped=%d", cfg.DecisionCache.Kept, cfg.DecisionCache.Dropped),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func createRatioCommand() *cli.Command {
	return &cli.Command{
		Name:         "ratio",
		Usage:        "输出 trace ID 在给定比率下的判定结果",
		ArgsUsage:    "<trace-id-hex> <rate>",
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return usagef("需要 2 个参数: <trace-id-hex> <rate>，实际 %d 个", cmd.Args().Len())
			}
			return cmdRatio(cmd.Root().Writer, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

// cmdRatio 输出 keep 或 drop。
func cmdRatio(w io.Writer, idHex, rateStr string) error {
	id, err := trace.TraceIDFromHex(strings.TrimSpace(idHex))
	if err != nil {
		return usagef("无效的 trace ID %q: %v", idHex, err)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(rateStr), 64)
	if err != nil {
		return usagef("无效的比率 %q: %v", rateStr, err)
	}
	if err := xsampling.ValidateRate(rate); err != nil {
		return usagef("无效的比率 %q: %v", rateStr, err)
	}

	decision := "drop"
	if xsampling.TraceIDRatio(id, rate) {
		decision = "keep"
	}
	_, err = fmt.Fprintln(w, decision)
	return err
}

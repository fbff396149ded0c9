package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xtail/pkg/config/xconf"
	"github.com/omeyang/xtail/pkg/observability/xlog"
	"github.com/omeyang/xtail/pkg/observability/xsampling"
	"github.com/omeyang/xtail/pkg/observability/xtailsample"
)

const (
	// spanStep 合成 span 之间的间隔
	spanStep = 10 * time.Millisecond

	// shutdownTimeout 关闭 TracerProvider（含导出）的时间上限
	shutdownTimeout = 10 * time.Second

	attrRunID  = attribute.Key("xtail.run_id")
	attrTenant = attribute.Key("tenant.id")
)

// simEpoch 合成时间线的起点，时间戳全部显式指定，不依赖真实耗时
var simEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type simConfig struct {
	traces    int
	workers   int
	spans     int
	errorRate float64
	slowRate  float64
	slowBy    time.Duration
	seed      uint64
	endpoint  string
	watch     bool
}

func createSimulateCommand() *cli.Command {
	return &cli.Command{
		Name:         "simulate",
		Usage:        "生成合成 trace 并经过处理器，输出保留统计",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "traces", Aliases: []string{"n"}, Usage: "trace 数量", Value: 1000},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "并发数", Value: 4},
			&cli.IntFlag{Name: "spans", Usage: "每个 trace 的 span 数（含根 span）", Value: 5},
			&cli.FloatFlag{Name: "error-rate", Usage: "包含 error 级别 span 的 trace 比例", Value: 0.01},
			&cli.FloatFlag{Name: "slow-rate", Usage: "根 span 超时的 trace 比例", Value: 0.02},
			&cli.DurationFlag{Name: "slow-duration", Usage: "慢 trace 的根 span 耗时", Value: 10 * time.Second},
			&cli.IntFlag{Name: "seed", Usage: "随机种子，相同种子生成相同负载", Value: 1},
			&cli.StringFlag{Name: "otlp-endpoint", Usage: "OTLP gRPC 地址，缺省时导出到内存"},
			&cli.BoolFlag{Name: "watch", Usage: "监视配置文件并热更新尾部策略（需要 --config）"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sc, err := parseSimConfig(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, cleanup, err := buildLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = cleanup() }()

			return cmdSimulate(ctx, cmd.Root().Writer, sc, cfg, cmd.String("config"), logger)
		},
	}
}

func parseSimConfig(cmd *cli.Command) (simConfig, error) {
	sc := simConfig{
		traces:    cmd.Int("traces"),
		workers:   cmd.Int("workers"),
		spans:     cmd.Int("spans"),
		errorRate: cmd.Float("error-rate"),
		slowRate:  cmd.Float("slow-rate"),
		slowBy:    cmd.Duration("slow-duration"),
		seed:      uint64(cmd.Int("seed")),
		endpoint:  cmd.String("otlp-endpoint"),
		watch:     cmd.Bool("watch"),
	}
	switch {
	case sc.traces < 0:
		return sc, usagef("--traces 不能为负数")
	case sc.workers < 1:
		return sc, usagef("--workers 至少为 1")
	case sc.spans < 1:
		return sc, usagef("--spans 至少为 1")
	case xsampling.ValidateRate(sc.errorRate) != nil:
		return sc, usagef("--error-rate 必须在 [0,1] 内")
	case xsampling.ValidateRate(sc.slowRate) != nil:
		return sc, usagef("--slow-rate 必须在 [0,1] 内")
	case sc.slowBy < 0:
		return sc, usagef("--slow-duration 不能为负数")
	case sc.watch && cmd.String("config") == "":
		return sc, usagef("--watch 需要同时指定 --config")
	}
	return sc, nil
}

// countingSink 统计到达下游的结束事件
type countingSink struct {
	sdktrace.SpanProcessor

	mu     sync.Mutex
	ended  int
	traces map[trace.TraceID]struct{}
}

func newCountingSink(next sdktrace.SpanProcessor) *countingSink {
	return &countingSink{SpanProcessor: next, traces: make(map[trace.TraceID]struct{})}
}

func (c *countingSink) OnEnd(s sdktrace.ReadOnlySpan) {
	c.mu.Lock()
	c.ended++
	c.traces[s.SpanContext().TraceID()] = struct{}{}
	c.mu.Unlock()
	c.SpanProcessor.OnEnd(s)
}

func (c *countingSink) counts() (spans, traces int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended, len(c.traces)
}

// newSink 指定 endpoint 时批量导出到 OTLP gRPC，否则同步导出到内存
func newSink(ctx context.Context, endpoint string) (sdktrace.SpanProcessor, error) {
	if endpoint == "" {
		return sdktrace.NewSimpleSpanProcessor(tracetest.NewInMemoryExporter()), nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return sdktrace.NewBatchSpanProcessor(exp), nil
}

type simReport struct {
	runID         string
	traces        int
	errorTraces   int64
	slowTraces    int64
	keptTraces    int
	exportedSpans int
	pending       int
	sums          map[string]int64
}

func cmdSimulate(ctx context.Context, w io.Writer, sc simConfig, cfg *xconf.Config, cfgPath string,
	logger xlog.Logger) error {
	opts, err := cfg.SamplingOptions()
	if err != nil {
		return &configError{err: err}
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.WithoutCancel(ctx)) }()

	next, err := newSink(ctx, sc.endpoint)
	if err != nil {
		return err
	}
	sink := newCountingSink(next)

	procOpts := append(cfg.ProcessorOptions(),
		xtailsample.WithLogger(logger),
		xtailsample.WithMeterProvider(mp),
	)
	proc, err := xtailsample.NewProcessor(sink, opts, procOpts...)
	if err != nil {
		return &configError{err: err}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(opts.Sampler()),
		sdktrace.WithSpanProcessor(proc),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "xtailsim"))),
	)
	shutdown := func() error {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return tp.Shutdown(sctx)
	}

	if sc.watch {
		watcher, err := watchPolicy(ctx, cfgPath, proc, logger)
		if err != nil {
			_ = shutdown()
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	report := simReport{runID: uuid.NewString(), traces: sc.traces}
	logger.Info(ctx, "simulation started",
		xlog.Component("xtailsim"),
		xlog.SpanCount(sc.traces*sc.spans),
	)

	tracer := tp.Tracer("github.com/omeyang/xtail/cmd/xtailsim")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sc.workers)
	var errorTraces, slowTraces atomic.Int64
	for i := range sc.traces {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			isErr, isSlow := emitTrace(gctx, tracer, sc, report.runID, i)
			if isErr {
				errorTraces.Add(1)
			}
			if isSlow {
				slowTraces.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = shutdown()
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = shutdown()
		return fmt.Errorf("simulation interrupted: %w", err)
	}

	report.errorTraces = errorTraces.Load()
	report.slowTraces = slowTraces.Load()
	report.pending = proc.PendingTraces()
	if err := shutdown(); err != nil {
		return fmt.Errorf("shutdown tracer provider: %w", err)
	}
	report.exportedSpans, report.keptTraces = sink.counts()

	report.sums, err = metricSums(ctx, reader)
	if err != nil {
		return err
	}
	return printReport(w, report)
}

// emitTrace 生成一个 trace，返回它是否包含 error span、是否为慢 trace
//
// 随机数由 (seed, 序号) 决定，与调度顺序无关。
func emitTrace(ctx context.Context, tracer trace.Tracer, sc simConfig, runID string, i int) (isErr, isSlow bool) {
	rng := rand.New(rand.NewPCG(sc.seed, uint64(i)))
	isErr = rng.Float64() < sc.errorRate
	isSlow = rng.Float64() < sc.slowRate
	errAt := -1
	if isErr {
		errAt = rng.IntN(sc.spans)
	}

	base := simEpoch.Add(time.Duration(i) * time.Millisecond)
	rootAttrs := []attribute.KeyValue{
		attrRunID.String(runID),
		attrTenant.String(fmt.Sprintf("tenant-%d", i%16)),
	}
	if errAt == 0 {
		rootAttrs = append(rootAttrs, xtailsample.LevelAttr(xtailsample.LevelError))
	}
	rootCtx, root := tracer.Start(ctx, "request",
		trace.WithTimestamp(base),
		trace.WithAttributes(rootAttrs...),
	)
	if errAt == 0 {
		root.SetStatus(codes.Error, "synthetic failure")
	}

	for k := 1; k < sc.spans; k++ {
		start := base.Add(time.Duration(k) * spanStep)
		opts := []trace.SpanStartOption{trace.WithTimestamp(start)}
		if k == errAt {
			opts = append(opts, trace.WithAttributes(xtailsample.LevelAttr(xtailsample.LevelError)))
		}
		_, child := tracer.Start(rootCtx, fmt.Sprintf("step-%d", k), opts...)
		if k == errAt {
			child.SetStatus(codes.Error, "synthetic failure")
		}
		child.End(trace.WithTimestamp(start.Add(spanStep / 2)))
	}

	end := base.Add(time.Duration(sc.spans) * spanStep)
	if isSlow {
		end = base.Add(sc.slowBy)
	}
	root.End(trace.WithTimestamp(end))
	return isErr, isSlow
}

// watchPolicy 配置文件变更时热更新处理器的尾部策略
func watchPolicy(ctx context.Context, path string, proc *xtailsample.Processor, logger xlog.Logger) (*xconf.Watcher, error) {
	w, err := xconf.Watch(path, func(cfg *xconf.Config, err error) {
		if err != nil {
			logger.Warn(ctx, "config reload failed, keeping current policy", xlog.Err(err))
			return
		}
		opts, err := cfg.SamplingOptions()
		if err == nil {
			err = proc.UpdateOptions(opts)
		}
		if err != nil {
			logger.Warn(ctx, "apply reloaded policy failed", xlog.Err(err))
		}
	})
	if err != nil {
		return nil, &configError{err: err}
	}
	w.StartAsync()
	return w, nil
}

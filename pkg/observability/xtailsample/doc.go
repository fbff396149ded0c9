// Package xtailsample 提供 OpenTelemetry SDK 的尾部采样 SpanProcessor。
//
// # 工作方式
//
// [Processor] 包装一个下游 sdktrace.SpanProcessor（sink），按 trace ID 缓冲
// span 的开始与结束事件。每个事件都会构造 [SpanSamplingInfo] 交给尾部决策
// 函数 [TailFunc]，得到比率后用 xsampling.TraceIDRatio 做确定性判定：
//
//   - 判定保留：整个缓冲按原顺序转发（先全部开始事件，再全部结束事件），
//     之后该 trace 的事件直接透传给 sink
//   - 本地首个 span 结束时仍未保留：丢弃整个缓冲，sink 收不到任何事件
//
// 每个 trace 至多做出一次决策，被保留 trace 的每个事件恰好转发一次。
//
// # 策略
//
// [ErrorOrDuration] 构建最常用的策略：级别达到阈值（默认 notice）或耗时超过
// 阈值（默认 5s）的 trace 以 tail 比率保留，其余以 background 比率保留：
//
//	opts, err := xtailsample.ErrorOrDuration(
//	    xtailsample.WithDurationThreshold(2*time.Second),
//	    xtailsample.WithBackgroundRate(0.01),
//	)
//	proc, err := xtailsample.NewProcessor(sdktrace.NewBatchSpanProcessor(exp), opts)
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithSampler(opts.Sampler()),
//	    sdktrace.WithSpanProcessor(proc),
//	)
//
// span 级别通过 [LevelAttr] 设置，未设置时 codes.Error 状态视为 error 级别。
//
// # 约束
//
//   - 决策函数与 sink 在处理器锁内调用，必须快速返回且不能阻塞
//   - 决策函数或 sink 的 panic 不会被恢复，直接传播给调用方
//   - 根 span 永不结束的 trace 会一直缓冲，Shutdown 时丢弃
package xtailsample

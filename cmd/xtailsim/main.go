// xtailsim 用合成负载端到端演练尾部采样处理器。
//
// 用法:
//
//	xtailsim [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径（yaml/json），缺省使用内置默认值
//	    --log-level   日志级别，覆盖配置文件
//	    --log-format  日志格式 text/json，覆盖配置文件
//
// 命令:
//
//	simulate          生成合成 trace 并经过处理器，输出保留统计
//	check             加载并校验配置，输出生效的采样策略
//	ratio <id> <rate> 输出 trace ID 在给定比率下的判定结果
//
// 退出码:
//
//	0: 成功
//	1: 运行时错误（导出失败等）
//	2: 参数或配置错误
//
// 示例:
//
//	xtailsim simulate --traces 10000 --error-rate 0.01 --slow-rate 0.02
//	xtailsim -c xtail.yaml simulate --otlp-endpoint localhost:4317
//	xtailsim -c xtail.yaml check
//	xtailsim ratio 4bf92f3577b34da6a3ce929d0e0e4736 0.25
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xtailsim",
		Usage:     "尾部采样处理器演练工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 debug/info/warn/error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 text/json",
			},
		},
		Commands:     createCommands(),
		OnUsageError: onUsageError,
		// 由 run() 统一映射退出码，禁止 urfave/cli 直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	err := app.Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(stderr, "配置错误: %v\n", cfgErr)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

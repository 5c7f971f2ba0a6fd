// xcorrctl 是 Request-Id 关联工具的命令行客户端，用于排查跨服务的调用链。
//
// 用法:
//
//	xcorrctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   关联配置文件（YAML/JSON），用于自定义头和旧式头
//
// 命令:
//
//	root                         生成新的层级 Request-Id
//	child <parent>               基于 parent 派生子 ID（--dependency 生成依赖类型）
//	parse <id>                   解析 ID：是否层级、根 ID、深度、是否溢出
//	resolve -H "Name: value"     按入站头解析操作上下文
//	inject --id <id>             打印出站调用应写入的头
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（如配置文件无法加载）
//	2: 参数错误
//
// 示例:
//
//	xcorrctl root
//	xcorrctl child '|4bf92f35.' --dependency
//	xcorrctl resolve -H 'Request-Id: |4bf92f35.1_' -H 'Correlation-Context: user=alice'
//	xcorrctl -c xcorr.yaml resolve -H 'x-ms-request-root-id: abc'
//	xcorrctl inject --id '|4bf92f35.1_' --baggage tenant=t1
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xcorrctl",
		Usage:   "Request-Id 关联工具",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "关联配置文件路径",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 退出码统一由 run() 映射，不让框架直接 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	if err := createApp().Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// isCLIUsageError 识别 flag 解析器产生的错误，这类错误已由框架输出到 stderr。
func isCLIUsageError(err error) bool {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "flag provided but not defined") ||
		strings.HasPrefix(msg, "invalid value") ||
		strings.Contains(msg, "No help topic for")
}

// setupSignalHandler 第一次信号取消 ctx，第二次强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}

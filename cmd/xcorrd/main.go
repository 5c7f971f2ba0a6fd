// xcorrd 是 Request-Id 关联的诊断服务。
//
// 它在 HTTP 的 /echo 上返回按入站头解析出的操作上下文，可选地继续调用下游的 xcorrd，
// 用来在部署环境中验证调用链是否正确串联；同时提供带关联拦截器的 gRPC 健康检查服务。
//
// 用法:
//
//	xcorrd [选项]
//
// 选项:
//
//	-c, --config            关联配置文件（YAML/JSON），修改后自动重载自定义头和日志级别
//	    --http-addr         HTTP 监听地址 (默认: :8080)
//	    --grpc-addr         gRPC 监听地址 (默认: :9090，为空时不启动)
//	    --downstream        /echo 收到请求后继续调用的下游 URL
//	    --shutdown-timeout  优雅关闭超时 (默认: 10s)
//
// 示例:
//
//	xcorrd -c xcorr.yaml --downstream http://orders:8080/echo
//	curl -H 'Request-Id: |abc.' -H 'Correlation-Context: user=alice' localhost:8080/echo
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xcorr/pkg/lifecycle/xrun"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	if err := createApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xcorrd",
		Usage:   "Request-Id 关联诊断服务",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "关联配置文件路径",
			},
			&cli.StringFlag{
				Name:  "http-addr",
				Usage: "HTTP 监听地址",
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:  "grpc-addr",
				Usage: "gRPC 监听地址，为空时不启动",
				Value: ":9090",
			},
			&cli.StringFlag{
				Name:  "downstream",
				Usage: "/echo 继续调用的下游 URL",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "优雅关闭超时",
				Value: 10 * time.Second,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			err := serve(ctx, settings{
				configPath:      cmd.String("config"),
				httpAddr:        cmd.String("http-addr"),
				grpcAddr:        cmd.String("grpc-addr"),
				downstream:      cmd.String("downstream"),
				shutdownTimeout: cmd.Duration("shutdown-timeout"),
			}, nil)
			// 信号退出视为正常结束
			if errors.Is(err, xrun.ErrSignal) {
				return nil
			}
			return err
		},
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

// correlationPath 配置文件中关联配置所在的键
const correlationPath = "correlation"

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createRootCommand(),
		createChildCommand(),
		createParseCommand(),
		createResolveCommand(),
		createInjectCommand(),
	}
}

func createRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "root",
		Usage: "生成新的层级 Request-Id",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprintln(output(cmd), xreqid.GenerateNewHierarchicalID())
			return err
		},
	}
}

func createChildCommand() *cli.Command {
	return &cli.Command{
		Name:      "child",
		Usage:     "基于父 ID 派生子 ID",
		ArgsUsage: "<parent>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dependency",
				Aliases: []string{"d"},
				Usage:   "生成依赖类型子 ID（以 '.' 结尾），默认为请求类型",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return usagef("child 需要一个 parent 参数")
			}
			kind := xreqid.KindRequest
			if cmd.Bool("dependency") {
				kind = xreqid.KindDependency
			}
			_, err := fmt.Fprintln(output(cmd), xreqid.GenerateChildID(cmd.Args().First(), kind))
			return err
		},
	}
}

func createParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "解析 Request-Id",
		ArgsUsage: "<id>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 || cmd.Args().First() == "" {
				return usagef("parse 需要一个非空 id 参数")
			}
			return printParse(output(cmd), cmd.Args().First())
		},
	}
}

func printParse(w io.Writer, id string) error {
	_, err := fmt.Fprintf(w, "hierarchical: %t\nroot: %s\ndepth: %d\noverflowed: %t\n",
		xreqid.IsHierarchical(id), xreqid.RootID(id), xreqid.Depth(id), xreqid.IsOverflowed(id))
	return err
}

func createResolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "按入站头解析操作上下文",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   `入站头，格式 "Name: value"，可重复`,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := parseHeaders(cmd.StringSlice("header"))
			if err != nil {
				return err
			}
			c, err := loadCorrelation(cmd.String("config"))
			if err != nil {
				return err
			}
			op := xtrace.NewResolver(c.ResolverOptions()...).Resolve(ctx, propagation.HeaderCarrier(h))
			return printOperation(output(cmd), op)
		},
	}
}

func printOperation(w io.Writer, op xctx.Operation) error {
	_, err := fmt.Fprintf(w, "source: %s\noperation_id: %s\nparent_id: %s\nid: %s\ncorrelation_context: %s\n",
		op.Source, op.OperationID, op.ParentID, op.ID, op.Baggage.String())
	return err
}

func createInjectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inject",
		Usage: "打印出站调用应写入的头",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "当前操作的 Request-Id，为空时按无上下文处理",
			},
			&cli.StringFlag{
				Name:  "operation",
				Usage: "OperationId，为空时取 id 的根",
			},
			&cli.StringSliceFlag{
				Name:    "baggage",
				Aliases: []string{"b"},
				Usage:   "关联上下文键值对 key=value，可重复",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			bag, err := parseBaggage(cmd.StringSlice("baggage"))
			if err != nil {
				return err
			}
			c, err := loadCorrelation(cmd.String("config"))
			if err != nil {
				return err
			}
			appIDs, closeFn, err := c.AppIDResolver()
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if id := cmd.String("id"); id != "" {
				var scope *xctx.Scope
				ctx, scope = xctx.Establish(ctx, xctx.Operation{
					OperationID: cmd.String("operation"),
					ID:          id,
					Baggage:     bag,
				})
				defer scope.End()
			}

			h := http.Header{}
			xtrace.NewInjector(c.InjectorOptions(appIDs)...).Inject(ctx, propagation.HeaderCarrier(h))
			return printHeaders(output(cmd), h)
		},
	}
}

// printHeaders 按名称排序输出，每行 "Name: value"
func printHeaders(w io.Writer, h http.Header) error {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %s\n", name, strings.Join(h.Values(name), ", ")); err != nil {
			return err
		}
	}
	return nil
}

// parseHeaders 解析 "Name: value" 列表，同名头按出现顺序追加。
func parseHeaders(raw []string) (http.Header, error) {
	h := http.Header{}
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, usagef("无效的头 %q，应为 \"Name: value\"", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

// parseBaggage 解析 key=value 列表，键值须满足尺寸限制。
func parseBaggage(raw []string) (xbaggage.Baggage, error) {
	var b xbaggage.Baggage
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || !xbaggage.Valid(key, value) {
			return xbaggage.Baggage{}, usagef("无效的关联上下文 %q，应为 key=value（键 1-%d 字符，值 1-%d 字符）",
				kv, xbaggage.MaxKeyLength, xbaggage.MaxValueLength)
		}
		b.Set(key, value)
	}
	return b, nil
}

// loadCorrelation path 为空时返回默认配置
func loadCorrelation(path string) (xconf.Correlation, error) {
	if path == "" {
		return xconf.DefaultCorrelation(), nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return xconf.Correlation{}, err
	}
	return xconf.LoadCorrelation(cfg, correlationPath)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

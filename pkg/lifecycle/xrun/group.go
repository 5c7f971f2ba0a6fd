package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// Service 阻塞运行直到 ctx 取消或出错的服务。
type Service func(ctx context.Context) error

// Group 并发运行一组服务，任一服务返回错误时取消其余服务。
//
// Go 可并发调用，Wait 只调用一次。
type Group struct {
	eg     *errgroup.Group
	ctx    context.Context
	parent context.Context
	cancel context.CancelCauseFunc
	opts   *options
}

// NewGroup 创建 Group，返回的 ctx 在任一服务失败或 Cancel 时取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	parent, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(parent)
	return &Group{eg: eg, ctx: egCtx, parent: parent, cancel: cancel, opts: o}, egCtx
}

func (g *Group) logger() xlog.Logger {
	if g.opts.logger != nil {
		return g.opts.logger
	}
	return xlog.Default()
}

// Go 启动匿名服务
func (g *Group) Go(svc Service) {
	g.GoNamed("", svc)
}

// GoNamed 启动服务，name 出现在生命周期日志中
func (g *Group) GoNamed(name string, svc Service) {
	g.eg.Go(func() error {
		if svc == nil {
			return ErrNilService
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("service", name)}
		g.logger().Debug(g.ctx, "service starting", attrs...)

		err := svc(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger().Warn(g.ctx, "service exited with error", append(attrs, xlog.Err(err))...)
		} else {
			g.logger().Debug(g.ctx, "service stopped", attrs...)
		}
		return err
	})
}

// Cancel 以 cause 为原因取消所有服务，Wait 返回 cause。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待所有服务退出。
//
// 返回第一个服务错误；因取消产生的 context.Canceled 被替换为 Cancel 给出的原因，
// 没有显式原因时返回 nil。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cause := g.cause()
	switch {
	case err == nil:
		return cause
	case errors.Is(err, context.Canceled) && g.parent.Err() != nil:
		return cause
	default:
		return err
	}
}

// cause 返回显式的取消原因，普通取消返回 nil
func (g *Group) cause() error {
	if g.parent.Err() == nil {
		return nil
	}
	if c := context.Cause(g.parent); c != nil && !errors.Is(c, context.Canceled) {
		return c
	}
	return nil
}

// Run 在同一个 Group 中运行 services，并在收到信号时以 [*SignalError] 退出。
//
// 返回值与 [Group.Wait] 相同。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g, _ := NewGroup(ctx, opts...)

	if src, stop := g.signalSource(); src != nil {
		g.GoNamed("signal", func(ctx context.Context) error {
			defer stop()
			select {
			case sig := <-src:
				g.logger().Info(ctx, "received signal",
					slog.String("group", g.opts.name), slog.String("signal", sig.String()))
				g.Cancel(&SignalError{Signal: sig})
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	for _, svc := range services {
		g.Go(svc)
	}
	return g.Wait()
}

func (g *Group) signalSource() (<-chan os.Signal, func()) {
	if g.opts.sigSource != nil {
		return g.opts.sigSource, func() {}
	}
	if len(g.opts.signals) == 0 {
		return nil, nil
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, g.opts.signals...)
	return ch, func() { signal.Stop(ch) }
}

// Named 给服务附加名称，服务错误以 [*ServiceError] 返回
func Named(name string, svc Service) Service {
	if svc == nil {
		return nil
	}
	return func(ctx context.Context) error {
		err := svc(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return &ServiceError{Name: name, Err: err}
		}
		return err
	}
}

// ServiceError 带名称的服务错误
type ServiceError struct {
	Name string
	Err  error
}

func (e *ServiceError) Error() string {
	return "xrun: service " + e.Name + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

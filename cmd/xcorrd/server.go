package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/lifecycle/xrun"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xmetrics"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

const correlationPath = "correlation"

type settings struct {
	configPath      string
	httpAddr        string
	grpcAddr        string
	downstream      string
	shutdownTimeout time.Duration

	// onReady 监听器就绪后回调，测试用
	onReady func(httpAddr, grpcAddr net.Addr)
}

// daemon 持有一个服务实例的全部关联组件
type daemon struct {
	logger        xlog.LoggerWithLevel
	meterProvider metric.MeterProvider
	recorder      xmetrics.Recorder
	resolver      *xtrace.Resolver
	injector      *xtrace.Injector
	tracker       *xtelemetry.Tracker
	client        *http.Client

	downstream string
	closers    []func() error
}

func newDaemon(c xconf.Correlation, downstream string) (_ *daemon, err error) {
	d := &daemon{downstream: downstream}
	defer func() {
		if err != nil {
			err = errors.Join(err, d.Close())
		}
	}()

	logger, closeLog, err := c.NewLogger()
	if err != nil {
		return nil, err
	}
	d.logger = logger
	d.closers = append(d.closers, closeLog)

	d.meterProvider = otel.GetMeterProvider()
	if c.MetricsInterval > 0 {
		mp := xmetrics.NewLogMeterProvider(logger, c.MetricsInterval)
		d.meterProvider = mp
		d.closers = append(d.closers, func() error {
			return mp.Shutdown(context.Background())
		})
	}
	d.recorder, err = xmetrics.NewOTelRecorder(
		xmetrics.WithMeterProvider(d.meterProvider),
		xmetrics.WithOverflowSource(xreqid.Default().Overflows),
	)
	if err != nil {
		return nil, err
	}

	appIDs, closeAppIDs, err := c.AppIDResolver()
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, closeAppIDs)

	d.resolver = xtrace.NewResolver(append(c.ResolverOptions(), xtrace.WithResolveRecorder(d.recorder))...)
	d.injector = xtrace.NewInjector(append(c.InjectorOptions(appIDs), xtrace.WithInjectRecorder(d.recorder))...)

	d.tracker, err = xtelemetry.NewTracker(&xtelemetry.LogSink{Logger: logger},
		append(c.TrackerOptions(), xtelemetry.WithRecorder(d.recorder))...)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() error {
		d.tracker.Close()
		return nil
	})

	d.client = &http.Client{
		Timeout:   10 * time.Second,
		Transport: &xtrace.Transport{Injector: d.injector, Tracker: d.tracker},
	}
	return d, nil
}

func (d *daemon) options() []xtrace.Option {
	return []xtrace.Option{
		xtrace.WithResolver(d.resolver),
		xtrace.WithInjector(d.injector),
		xtrace.WithTracker(d.tracker),
		xtrace.WithRecorder(d.recorder),
	}
}

// handler /echo 经过关联中间件，/healthz 不经过
func (d *daemon) handler() http.Handler {
	opts := d.options()
	mux := http.NewServeMux()
	mux.Handle("/echo", xtrace.HTTPMiddleware(opts...)(xtrace.RestoreMiddleware(opts...)(d.echo())))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (d *daemon) grpcServer() *grpc.Server {
	opts := d.options()
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(xtrace.GRPCUnaryServerInterceptor(opts...)),
		grpc.ChainStreamInterceptor(xtrace.GRPCStreamServerInterceptor(opts...)),
	)
	healthpb.RegisterHealthServer(srv, health.NewServer())
	return srv
}

// propagator 供 otel 全局使用：W3C trace context 与 Request-Id 头同时传播
func (d *daemon) propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		xtrace.NewPropagator(d.resolver, d.injector),
	)
}

// Close 逆序释放资源
func (d *daemon) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func loadCorrelation(path string) (*xconf.Config, xconf.Correlation, error) {
	if path == "" {
		return nil, xconf.DefaultCorrelation(), nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return nil, xconf.Correlation{}, err
	}
	c, err := xconf.LoadCorrelation(cfg, correlationPath)
	if err != nil {
		return nil, xconf.Correlation{}, err
	}
	return cfg, c, nil
}

// serve 运行服务直到 ctx 取消或收到信号。
func serve(ctx context.Context, s settings, runOpts []xrun.Option) (err error) {
	cfg, c, err := loadCorrelation(s.configPath)
	if err != nil {
		return err
	}
	d, err := newDaemon(c, s.downstream)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, d.Close()) }()

	xlog.SetDefault(d.logger)
	otel.SetTextMapPropagator(d.propagator())
	if c.MetricsInterval > 0 {
		otel.SetMeterProvider(d.meterProvider)
	}

	httpLis, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	httpSrv := &http.Server{Handler: d.handler(), ReadHeaderTimeout: 5 * time.Second}
	services := []xrun.Service{
		xrun.Named("http", xrun.HTTPServerOn(httpSrv, httpLis, s.shutdownTimeout)),
	}

	var grpcAddr net.Addr
	if s.grpcAddr != "" {
		grpcLis, err := net.Listen("tcp", s.grpcAddr)
		if err != nil {
			return errors.Join(fmt.Errorf("listen grpc: %w", err), httpLis.Close())
		}
		grpcAddr = grpcLis.Addr()
		services = append(services, xrun.Named("grpc", xrun.GRPC(d.grpcServer(), grpcLis)))
	}

	if cfg != nil {
		w, err := xconf.Watch(cfg, xconf.ApplyCorrelation(correlationPath, d.resolver, d.injector, d.logger))
		if err != nil {
			// 没有热更新仍可服务
			xlog.Warn(ctx, "xcorrd: config watch disabled", xlog.Err(err))
		} else {
			services = append(services, xrun.Named("watch", xrun.StartStop(w.Start, w.Stop)))
		}
	}

	xlog.Info(ctx, "xcorrd: serving",
		slog.String("http", httpLis.Addr().String()),
		slog.Any("grpc", grpcAddr),
		slog.String("downstream", s.downstream))
	if s.onReady != nil {
		s.onReady(httpLis.Addr(), grpcAddr)
	}

	opts := append([]xrun.Option{xrun.WithName("xcorrd"), xrun.WithLogger(d.logger)}, runOpts...)
	return xrun.Run(ctx, opts, services...)
}

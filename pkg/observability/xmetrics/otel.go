package xmetrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xcorr/pkg/observability/xmetrics"

	metricResolveTotal       = "xcorr.resolve.total"
	metricBaggageDropped     = "xcorr.baggage.dropped"
	metricScopeRestored      = "xcorr.scope.restored"
	metricHeaderFailure      = "xcorr.header.failure"
	metricIDOverflow         = "xcorr.id.overflow"
	metricDependencyDuration = "xcorr.dependency.duration"

	attrSource    = "source"
	attrDirection = "direction"
	attrSuccess   = "success"
)

type otelConfig struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
	overflows           func() uint64
}

// Option OTel Recorder 配置选项
type Option func(*otelConfig)

// WithInstrumentationName 设置 instrumentation 名称
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel.GetMeterProvider()
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// WithOverflowSource 注册 ID 溢出计数的来源（通常是 xreqid.Generator.Overflows），
// 在每次采集时异步读取。
func WithOverflowSource(fn func() uint64) Option {
	return func(cfg *otelConfig) {
		cfg.overflows = fn
	}
}

type otelRecorder struct {
	resolveTotal   metric.Int64Counter
	baggageDropped metric.Int64Counter
	scopeRestored  metric.Int64Counter
	headerFailure  metric.Int64Counter
	depDuration    metric.Float64Histogram
}

// NewOTelRecorder 创建基于 OpenTelemetry 的 Recorder
func NewOTelRecorder(opts ...Option) (Recorder, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	r := &otelRecorder{}
	var err error
	if r.resolveTotal, err = meter.Int64Counter(metricResolveTotal,
		metric.WithDescription("inbound correlation resolutions"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricResolveTotal, err)
	}
	if r.baggageDropped, err = meter.Int64Counter(metricBaggageDropped,
		metric.WithDescription("correlation context entries dropped by size validation"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricBaggageDropped, err)
	}
	if r.scopeRestored, err = meter.Int64Counter(metricScopeRestored,
		metric.WithDescription("scopes re-established after loss"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricScopeRestored, err)
	}
	if r.headerFailure, err = meter.Int64Counter(metricHeaderFailure,
		metric.WithDescription("recovered header read/write failures"),
		metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricHeaderFailure, err)
	}
	if r.depDuration, err = meter.Float64Histogram(metricDependencyDuration,
		metric.WithDescription("outbound dependency duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricDependencyDuration, err)
	}

	if cfg.overflows != nil {
		source := cfg.overflows
		if _, err = meter.Int64ObservableCounter(metricIDOverflow,
			metric.WithDescription("ids truncated by overflow handling"),
			metric.WithUnit("1"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(source()))
				return nil
			})); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, metricIDOverflow, err)
		}
	}
	return r, nil
}

func (r *otelRecorder) ResolveTotal(ctx context.Context, source string) {
	r.resolveTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}

func (r *otelRecorder) BaggageDropped(ctx context.Context, n int) {
	if n > 0 {
		r.baggageDropped.Add(ctx, int64(n))
	}
}

func (r *otelRecorder) ScopeRestored(ctx context.Context) {
	r.scopeRestored.Add(ctx, 1)
}

func (r *otelRecorder) HeaderFailure(ctx context.Context, dir Direction) {
	r.headerFailure.Add(ctx, 1, metric.WithAttributes(attribute.String(attrDirection, string(dir))))
}

func (r *otelRecorder) DependencyDuration(ctx context.Context, d time.Duration, success bool) {
	r.depDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool(attrSuccess, success)))
}

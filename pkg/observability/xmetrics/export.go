package xmetrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// LogExporter 把采集到的指标逐个数据点写入日志，适合没有指标后端的诊断场景。
type LogExporter struct {
	// Logger 为 nil 时使用 xlog 全局 Logger
	Logger xlog.Logger
}

var _ sdkmetric.Exporter = LogExporter{}

// Temporality 累计值
func (LogExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

// Aggregation 使用 SDK 默认聚合
func (LogExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

// Export 每个数据点一条 Info 日志
func (e LogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if rm == nil {
		return nil
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			e.exportMetric(ctx, m)
		}
	}
	return nil
}

func (e LogExporter) exportMetric(ctx context.Context, m metricdata.Metrics) {
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			e.log(ctx, m.Name, dp.Attributes, slog.Int64("value", dp.Value))
		}
	case metricdata.Sum[float64]:
		for _, dp := range data.DataPoints {
			e.log(ctx, m.Name, dp.Attributes, slog.Float64("value", dp.Value))
		}
	case metricdata.Gauge[int64]:
		for _, dp := range data.DataPoints {
			e.log(ctx, m.Name, dp.Attributes, slog.Int64("value", dp.Value))
		}
	case metricdata.Gauge[float64]:
		for _, dp := range data.DataPoints {
			e.log(ctx, m.Name, dp.Attributes, slog.Float64("value", dp.Value))
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			e.log(ctx, m.Name, dp.Attributes,
				slog.Uint64("count", dp.Count),
				slog.Float64("sum", dp.Sum))
		}
	}
}

func (e LogExporter) log(ctx context.Context, name string, set attribute.Set, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("metric", name),
		slog.String("attrs", set.Encoded(attribute.DefaultEncoder())),
	}, attrs...)
	if e.Logger != nil {
		e.Logger.Info(ctx, "xmetrics: export", attrs...)
		return
	}
	xlog.Info(ctx, "xmetrics: export", attrs...)
}

// ForceFlush 无缓冲
func (LogExporter) ForceFlush(context.Context) error { return nil }

// Shutdown 无资源需要释放
func (LogExporter) Shutdown(context.Context) error { return nil }

// NewLogMeterProvider 创建每隔 interval 把指标写入 logger 的 MeterProvider。
// 调用方负责 Shutdown，Shutdown 时会再导出一次。
func NewLogMeterProvider(logger xlog.Logger, interval time.Duration) *sdkmetric.MeterProvider {
	reader := sdkmetric.NewPeriodicReader(LogExporter{Logger: logger}, sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

package xconf

import (
	"fmt"
	"time"

	"github.com/omeyang/xcorr/pkg/correlation/xappid"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

// Correlation 关联引擎的配置。
//
//	correlation:
//	  root_header: x-ms-request-root-id
//	  parent_header: x-ms-request-id
//	  inject_legacy_headers: true
//	  instrumentation_key: 00000000-0000-0000-0000-000000000000
//	  profile_endpoint: https://dc.example.com
//	  profile_ttl: 12h
//	  metrics_interval: 1m
//	  pending:
//	    size: 10000
//	    ttl: 5m
//	  log:
//	    level: info
//	    format: json
type Correlation struct {
	// RootHeader 自定义根 ID 头，为空时不读取
	RootHeader string `koanf:"root_header"`
	// ParentHeader 自定义父 ID 头，为空时不读取
	ParentHeader string `koanf:"parent_header"`
	// InjectLegacyHeaders 出站调用是否同时写入上面两个头
	InjectLegacyHeaders bool `koanf:"inject_legacy_headers"`

	InstrumentationKey string `koanf:"instrumentation_key"`
	// AppID 固定的本地应用标识，设置后不再访问 profile 服务
	AppID string `koanf:"app_id"`
	// ProfileEndpoint profile 服务地址，用于按 instrumentation key 查询应用标识
	ProfileEndpoint string        `koanf:"profile_endpoint"`
	ProfileTTL      time.Duration `koanf:"profile_ttl"`

	// MetricsInterval 指标写入日志的周期，0 表示不导出
	MetricsInterval time.Duration `koanf:"metrics_interval"`

	Pending PendingConfig `koanf:"pending"`
	Log     LogConfig     `koanf:"log"`
}

// PendingConfig 未完成依赖的跟踪容量
type PendingConfig struct {
	Size int           `koanf:"size"`
	TTL  time.Duration `koanf:"ttl"`
}

// LogConfig 日志配置，File 为空时输出到 stderr
type LogConfig struct {
	Level    string              `koanf:"level"`
	Format   string              `koanf:"format"`
	File     string              `koanf:"file"`
	Rotation xlog.RotationConfig `koanf:"rotation"`
}

// DefaultCorrelation 默认配置：不读写旧式头，不解析应用标识。
func DefaultCorrelation() Correlation {
	return Correlation{
		ProfileTTL:      12 * time.Hour,
		MetricsInterval: time.Minute,
		Pending: PendingConfig{
			Size: 10000,
			TTL:  5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadCorrelation 读取 path 下的关联配置并校验，缺失字段取默认值。
func LoadCorrelation(cfg *Config, path string) (Correlation, error) {
	c := DefaultCorrelation()
	if err := cfg.Unmarshal(path, &c); err != nil {
		return Correlation{}, err
	}
	if err := c.Validate(); err != nil {
		return Correlation{}, err
	}
	return c, nil
}

// Validate 校验取值
func (c Correlation) Validate() error {
	if c.InjectLegacyHeaders && c.RootHeader == "" && c.ParentHeader == "" {
		return fmt.Errorf("%w: inject_legacy_headers requires root_header or parent_header", ErrInvalidCorrelation)
	}
	if (c.AppID != "" || c.ProfileEndpoint != "") && c.InstrumentationKey == "" {
		return fmt.Errorf("%w: app_id and profile_endpoint require instrumentation_key", ErrInvalidCorrelation)
	}
	if c.MetricsInterval < 0 {
		return fmt.Errorf("%w: metrics_interval must not be negative", ErrInvalidCorrelation)
	}
	if c.Pending.Size <= 0 {
		return fmt.Errorf("%w: pending.size must be positive", ErrInvalidCorrelation)
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCorrelation, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidCorrelation, c.Log.Format)
	}
	return nil
}

// ResolverOptions 映射为 xtrace.Resolver 选项
func (c Correlation) ResolverOptions() []xtrace.ResolverOption {
	return []xtrace.ResolverOption{xtrace.WithCustomHeaders(c.RootHeader, c.ParentHeader)}
}

// InjectorOptions 映射为 xtrace.Injector 选项，appIDs 为 nil 时不写 Request-Context。
func (c Correlation) InjectorOptions(appIDs xappid.Resolver) []xtrace.InjectorOption {
	var opts []xtrace.InjectorOption
	if c.InjectLegacyHeaders {
		opts = append(opts, xtrace.WithLegacyHeaders(c.LegacyHeaders()))
	}
	if appIDs != nil {
		opts = append(opts, xtrace.WithAppID(appIDs, c.InstrumentationKey))
	}
	return opts
}

// LegacyHeaders 返回出站需要写入的旧式头名称，未开启 inject_legacy_headers 时均为空串
func (c Correlation) LegacyHeaders() (root, parent string) {
	if !c.InjectLegacyHeaders {
		return "", ""
	}
	return c.RootHeader, c.ParentHeader
}

// TrackerOptions 映射为 xtelemetry.Tracker 选项
func (c Correlation) TrackerOptions() []xtelemetry.TrackerOption {
	return []xtelemetry.TrackerOption{xtelemetry.WithPending(c.Pending.Size, c.Pending.TTL)}
}

// AppIDResolver 构造本地应用标识的解析器。
//
// 设置了 AppID 时返回固定映射；设置了 ProfileEndpoint 时返回 Lookup，
// 此时 closer 释放其后台资源；都未设置时返回 nil。
func (c Correlation) AppIDResolver(opts ...xappid.LookupOption) (r xappid.Resolver, closer func() error, err error) {
	noop := func() error { return nil }
	switch {
	case c.AppID != "":
		return xappid.Static{c.InstrumentationKey: c.AppID}, noop, nil
	case c.ProfileEndpoint != "":
		if c.ProfileTTL > 0 {
			opts = append([]xappid.LookupOption{xappid.WithTTL(c.ProfileTTL)}, opts...)
		}
		l, err := xappid.NewLookup(c.ProfileEndpoint, opts...)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	default:
		return nil, noop, nil
	}
}

// NewLogger 按 Log 配置构建 Logger，cleanup 关闭日志文件。
func (c Correlation) NewLogger() (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().SetLevelString(c.Log.Level).SetFormat(c.Log.Format)
	if c.Log.File != "" {
		b = b.SetRotation(c.Log.File, c.Log.Rotation)
	}
	return b.Build()
}

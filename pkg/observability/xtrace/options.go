package xtrace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xmetrics"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
)

// =============================================================================
// 选项配置（HTTP 和 gRPC 共用）
// =============================================================================

// Option 中间件/拦截器选项。
// HTTP 和 gRPC 共用同一套选项类型。
type Option func(*config)

type config struct {
	resolver *Resolver
	injector *Injector
	tracker  *xtelemetry.Tracker
	recorder xmetrics.Recorder
	now      func() time.Time
}

// WithResolver 设置入站解析器，默认 NewResolver()
func WithResolver(r *Resolver) Option {
	return func(cfg *config) {
		cfg.resolver = r
	}
}

// WithInjector 设置出站注入器，默认 NewInjector()
func WithInjector(in *Injector) Option {
	return func(cfg *config) {
		cfg.injector = in
	}
}

// WithTracker 设置遥测跟踪器。未设置时不输出请求/依赖条目。
func WithTracker(t *xtelemetry.Tracker) Option {
	return func(cfg *config) {
		cfg.tracker = t
	}
}

// WithRecorder 设置指标记录器
func WithRecorder(r xmetrics.Recorder) Option {
	return func(cfg *config) {
		cfg.recorder = r
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.resolver == nil {
		cfg.resolver = NewResolver(WithResolveRecorder(cfg.recorder))
	}
	if cfg.injector == nil {
		cfg.injector = NewInjector(WithInjectRecorder(cfg.recorder))
	}
	cfg.recorder = xmetrics.OrNoop(cfg.recorder)
	return cfg
}

// =============================================================================
// 入站请求的公共流程
// =============================================================================

// 写入 otel span 的属性名
const (
	AttrOperationID = attribute.Key("xcorr.operation_id")
	AttrID          = attribute.Key("xcorr.id")
	AttrParentID    = attribute.Key("xcorr.parent_id")
)

// begin 建立请求 scope，并把操作存入新的 Holder 以便后续恢复。
func begin(ctx context.Context, op xctx.Operation) (context.Context, *xctx.Scope) {
	ctx, scope := xctx.Establish(ctx, op)
	holder := xctx.NewHolder()
	holder.Store(scope.Operation())
	// Establish 已保证 ctx 非 nil
	ctx, _ = xctx.WithHolder(ctx, holder)
	annotateSpan(ctx, scope.Operation())
	return ctx, scope
}

// annotateSpan 在正在记录的 span 上标注关联 ID
func annotateSpan(ctx context.Context, op xctx.Operation) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		AttrOperationID.String(op.OperationID),
		AttrID.String(op.ID),
	}
	if op.ParentID != "" {
		attrs = append(attrs, AttrParentID.String(op.ParentID))
	}
	span.SetAttributes(attrs...)
}

// restore scope 丢失时从 Holder 重建，返回的函数结束重建的 scope。
func restore(ctx context.Context, recorder xmetrics.Recorder) (context.Context, func()) {
	ctx, scope := xctx.RestoreIfLost(ctx, nil)
	if scope == nil {
		return ctx, func() {}
	}
	recorder.ScopeRestored(ctx)
	xlog.Debug(ctx, "xtrace: correlation scope restored")
	return ctx, scope.End
}

package xtrace

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xappid"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xmetrics"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
)

type injectorOptions struct {
	legacy   customHeaders
	appIDs   xappid.Resolver
	ikey     string
	recorder xmetrics.Recorder
}

// InjectorOption Injector 配置选项
type InjectorOption func(*injectorOptions)

// WithLegacyHeaders 额外写入旧式根 ID 头与父 ID 头，空串表示不写。
func WithLegacyHeaders(root, parent string) InjectorOption {
	return func(o *injectorOptions) {
		o.legacy = customHeaders{root: root, parent: parent}
	}
}

// WithAppID 设置本地应用标识的解析器与 instrumentation key。
func WithAppID(r xappid.Resolver, instrumentationKey string) InjectorOption {
	return func(o *injectorOptions) {
		o.appIDs = r
		o.ikey = instrumentationKey
	}
}

// WithInjectRecorder 设置指标记录器
func WithInjectRecorder(r xmetrics.Recorder) InjectorOption {
	return func(o *injectorOptions) {
		o.recorder = r
	}
}

// Injector 为出站调用写入关联头。并发安全。
type Injector struct {
	legacy   atomic.Pointer[customHeaders]
	appIDs   xappid.Resolver
	ikey     string
	recorder xmetrics.Recorder
}

// NewInjector 创建 Injector
func NewInjector(opts ...InjectorOption) *Injector {
	var o injectorOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	in := &Injector{
		appIDs:   o.appIDs,
		ikey:     o.ikey,
		recorder: xmetrics.OrNoop(o.recorder),
	}
	in.legacy.Store(&o.legacy)
	return in
}

// Update 原子替换旧式头名称，空串表示不写，用于配置热更新
func (in *Injector) Update(root, parent string) {
	in.legacy.Store(&customHeaders{root: root, parent: parent})
}

// LegacyHeaders 返回当前写入的旧式头名称
func (in *Injector) LegacyHeaders() (root, parent string) {
	h := in.legacy.Load()
	return h.root, h.parent
}

// LocalAppID 返回带 cid-v1: 前缀的本地应用标识，尚未解析到时返回 false。
func (in *Injector) LocalAppID(ctx context.Context) (string, bool) {
	if in.appIDs == nil || in.ikey == "" {
		return "", false
	}
	id, ok := in.appIDs.AppID(ctx, in.ikey)
	if !ok {
		return "", false
	}
	return FormatAppID(id), true
}

// Inject 为一次出站依赖调用写入关联头，返回写入 Request-Id 的子 ID。
//
// 子 ID 由当前 scope 的 ID 派生（依赖类型，以 '.' 结尾）；没有 scope 时使用新的层级 ID。
// 旧式头与 Request-Context 的 appId 只在 carrier 上尚无对应值时写入。
// 写 carrier 时的 panic 被恢复并记录，此时头可能只写入了一部分。
func (in *Injector) Inject(ctx context.Context, carrier propagation.TextMapCarrier) string {
	op, ok := xctx.Current(ctx)
	var childID string
	if ok {
		childID = xreqid.GenerateDependencyID(op.ID)
	} else {
		childID = xreqid.GenerateNewHierarchicalID()
		op.OperationID = xreqid.RootID(childID)
	}
	if carrier == nil {
		return childID
	}

	err := guard(func() {
		carrier.Set(HeaderRequestID, childID)
		if s := op.Baggage.String(); s != "" {
			carrier.Set(HeaderCorrelationContext, s)
		}
		legacy := in.legacy.Load()
		setIfAbsent(carrier, legacy.root, op.OperationID)
		setIfAbsent(carrier, legacy.parent, op.ID)

		if appID, ok := in.LocalAppID(ctx); ok && RequestContextValue(carrier, RequestContextAppIDKey) == "" {
			SetRequestContextValue(carrier, RequestContextAppIDKey, appID)
		}
	})
	if err != nil {
		xlog.Warn(ctx, "xtrace: inject outbound headers failed", xlog.Err(err))
		in.recorder.HeaderFailure(ctx, xmetrics.DirectionOutbound)
	}
	return childID
}

func setIfAbsent(carrier propagation.TextMapCarrier, key, value string) {
	if key == "" || value == "" || getValue(carrier, key) != "" {
		return
	}
	carrier.Set(key, value)
}

// SetResponseTarget 在入站请求的响应头上写入本地应用标识，已存在时不覆盖。
func (in *Injector) SetResponseTarget(ctx context.Context, carrier propagation.TextMapCarrier) {
	appID, ok := in.LocalAppID(ctx)
	if !ok || carrier == nil {
		return
	}
	err := guard(func() {
		if RequestContextValue(carrier, RequestContextAppIDKey) == "" {
			SetRequestContextValue(carrier, RequestContextAppIDKey, appID)
		}
	})
	if err != nil {
		xlog.Warn(ctx, "xtrace: set response target failed", xlog.Err(err))
		in.recorder.HeaderFailure(ctx, xmetrics.DirectionOutbound)
	}
}

// SourceAppID 读取入站请求的来源应用标识。
//
// 与本地应用标识相同（自己调用自己）或不存在时返回空串。
func (in *Injector) SourceAppID(ctx context.Context, carrier propagation.TextMapCarrier) string {
	source := in.remoteAppID(ctx, carrier)
	if source == "" {
		return ""
	}
	if local, ok := in.LocalAppID(ctx); ok && local == source {
		return ""
	}
	return source
}

// ParseResponse 根据依赖响应头中的目标应用标识标注依赖条目。
//
// 目标标识存在且与本地不同时，dep.Type 置为 [xtelemetry.TypeTrackedComponent]，
// dep.Target 追加 " | <目标标识>"。
func (in *Injector) ParseResponse(ctx context.Context, carrier propagation.TextMapCarrier, dep *xtelemetry.Item) {
	if dep == nil {
		return
	}
	target := in.remoteAppID(ctx, carrier)
	if target == "" {
		return
	}
	if local, ok := in.LocalAppID(ctx); ok && local == target {
		return
	}
	dep.Type = xtelemetry.TypeTrackedComponent
	dep.Target += " | " + target
}

func (in *Injector) remoteAppID(ctx context.Context, carrier propagation.TextMapCarrier) string {
	if carrier == nil {
		return ""
	}
	var v string
	err := guard(func() {
		v = RequestContextValue(carrier, RequestContextAppIDKey)
	})
	if err != nil {
		xlog.Warn(ctx, "xtrace: read request context failed", xlog.Err(err))
		in.recorder.HeaderFailure(ctx, xmetrics.DirectionInbound)
		return ""
	}
	return v
}

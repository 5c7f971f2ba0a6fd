package xtrace

import (
	"context"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/context/xctx"
)

// Propagator 以 OpenTelemetry TextMapPropagator 的形式暴露关联协议，
// 可与 W3C TraceContext 等组合进 propagation.NewCompositeTextMapPropagator。
type Propagator struct {
	resolver *Resolver
	injector *Injector
}

var _ propagation.TextMapPropagator = (*Propagator)(nil)

// NewPropagator 创建 Propagator，nil 参数使用默认配置
func NewPropagator(r *Resolver, in *Injector) *Propagator {
	if r == nil {
		r = NewResolver()
	}
	if in == nil {
		in = NewInjector()
	}
	return &Propagator{resolver: r, injector: in}
}

// Inject 写入出站关联头
func (p *Propagator) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	p.injector.Inject(ctx, carrier)
}

// Extract 解析入站头并返回携带新 scope 的 context。
//
// 该 scope 的生命周期与返回的 context 一致，不会被显式结束。
func (p *Propagator) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	ctx, _ = xctx.Establish(ctx, p.resolver.Resolve(ctx, carrier))
	return ctx
}

// Fields 返回可能读写的头名称
func (p *Propagator) Fields() []string {
	fields := []string{HeaderRequestID, HeaderCorrelationContext, HeaderRequestContext}
	root, parent := p.resolver.CustomHeaders()
	legacyRoot, legacyParent := p.injector.LegacyHeaders()
	for _, h := range []string{root, parent, legacyRoot, legacyParent} {
		if h != "" {
			fields = append(fields, h)
		}
	}
	return fields
}

package xtrace

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xmetrics"
)

// customHeaders 自定义旧式头名称，空串表示未配置
type customHeaders struct {
	root   string
	parent string
}

type resolverOptions struct {
	headers  customHeaders
	recorder xmetrics.Recorder
}

// ResolverOption Resolver 配置选项
type ResolverOption func(*resolverOptions)

// WithCustomHeaders 设置自定义根 ID 头与父 ID 头名称，空串表示不读取。
func WithCustomHeaders(root, parent string) ResolverOption {
	return func(o *resolverOptions) {
		o.headers = customHeaders{root: root, parent: parent}
	}
}

// WithResolveRecorder 设置指标记录器
func WithResolveRecorder(r xmetrics.Recorder) ResolverOption {
	return func(o *resolverOptions) {
		o.recorder = r
	}
}

// Resolver 把入站头解析为操作三元组。并发安全。
type Resolver struct {
	headers  atomic.Pointer[customHeaders]
	recorder xmetrics.Recorder
}

// NewResolver 创建 Resolver
func NewResolver(opts ...ResolverOption) *Resolver {
	var o resolverOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	r := &Resolver{recorder: xmetrics.OrNoop(o.recorder)}
	r.headers.Store(&o.headers)
	return r
}

// Update 原子替换自定义头名称，用于配置热更新
func (r *Resolver) Update(root, parent string) {
	r.headers.Store(&customHeaders{root: root, parent: parent})
}

// CustomHeaders 返回当前的自定义头名称
func (r *Resolver) CustomHeaders() (root, parent string) {
	h := r.headers.Load()
	return h.root, h.parent
}

// inbound 一次解析读取到的全部头值
type inbound struct {
	requestID    string
	correlation  []string
	customRoot   string
	customParent string
}

func readInbound(carrier propagation.TextMapCarrier, h *customHeaders) (in inbound, err error) {
	if carrier == nil {
		return in, nil
	}
	err = guard(func() {
		in.requestID = getTrimmed(carrier, HeaderRequestID)
		if in.requestID != "" {
			in.correlation = getValues(carrier, HeaderCorrelationContext)
			return
		}
		if h.root != "" {
			in.customRoot = getTrimmed(carrier, h.root)
		}
		if h.parent != "" {
			in.customParent = getTrimmed(carrier, h.parent)
		}
	})
	return in, err
}

// Resolve 按 Request-Id > 自定义头 > 新生成 的优先级解析 carrier。
//
// 从不失败：头缺失或读取异常时退化为新的根操作。
// 返回的 Operation 可直接交给 [xctx.Establish]。
func (r *Resolver) Resolve(ctx context.Context, carrier propagation.TextMapCarrier) xctx.Operation {
	in, err := readInbound(carrier, r.headers.Load())
	if err != nil {
		xlog.Warn(ctx, "xtrace: read inbound headers failed, starting new operation", xlog.Err(err))
		r.recorder.HeaderFailure(ctx, xmetrics.DirectionInbound)
		in = inbound{}
	}

	var op xctx.Operation
	switch {
	case in.requestID != "":
		op = r.fromRequestID(ctx, in)
	case in.customRoot != "" || in.customParent != "":
		op = fromCustom(in)
	default:
		op = fresh()
	}
	r.recorder.ResolveTotal(ctx, op.Source.String())
	return op
}

func (r *Resolver) fromRequestID(ctx context.Context, in inbound) xctx.Operation {
	bag, dropped := xbaggage.Parse(in.correlation...)
	if dropped > 0 {
		xlog.Debug(ctx, "xtrace: correlation context entries dropped", slog.Int("dropped", dropped))
		r.recorder.BaggageDropped(ctx, dropped)
	}

	op := xctx.Operation{
		ParentID: in.requestID,
		Baggage:  bag,
		Source:   xctx.SourceStandard,
	}
	hierarchical := xreqid.IsHierarchical(in.requestID)
	if root, ok := bag.Get(xbaggage.KeyID); ok && !hierarchical {
		op.OperationID = root
		op.ID = xreqid.GenerateRequestID(root)
	} else if hierarchical {
		op.OperationID = xreqid.RootID(in.requestID)
		op.ID = xreqid.GenerateRequestID(in.requestID)
	} else {
		op.OperationID = in.requestID
		op.ID = xreqid.GenerateRequestID(in.requestID)
	}
	return op
}

func fromCustom(in inbound) xctx.Operation {
	root := in.customRoot
	if root == "" {
		root = in.customParent
	}
	return xctx.Operation{
		OperationID: root,
		ParentID:    in.customParent,
		ID:          xreqid.GenerateRequestID(root),
		Source:      xctx.SourceCustom,
	}
}

func fresh() xctx.Operation {
	id := xreqid.GenerateNewHierarchicalID()
	return xctx.Operation{
		OperationID: xreqid.RootID(id),
		ID:          id,
		Source:      xctx.SourceFresh,
	}
}

package xtrace

import (
	"context"
	"slices"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
)

// DependencyTypeGRPC gRPC 依赖条目的类型
const DependencyTypeGRPC = "gRPC"

// =============================================================================
// gRPC 服务端拦截器
// =============================================================================

// serverBegin 解析 incoming metadata 并建立请求 scope，同时发送响应 header。
func serverBegin(ctx context.Context, cfg *config) (context.Context, func(method string, err error)) {
	start := cfg.now()
	md, _ := metadata.FromIncomingContext(ctx)
	inbound := MetadataCarrier(md)

	ctx, scope := begin(ctx, cfg.resolver.Resolve(ctx, inbound))
	source := cfg.injector.SourceAppID(ctx, inbound)

	header := metadata.MD{}
	cfg.injector.SetResponseTarget(ctx, MetadataCarrier(header))
	if header.Len() > 0 {
		if err := grpc.SetHeader(ctx, header); err != nil {
			xlog.Warn(ctx, "xtrace: set grpc response header failed", xlog.Err(err))
		}
	}

	return ctx, func(method string, err error) {
		defer scope.End()
		if cfg.tracker == nil {
			return
		}
		code := status.Code(err)
		cfg.tracker.TrackRequest(ctx, &xtelemetry.Item{
			Name:       method,
			Source:     source,
			ResultCode: code.String(),
			Success:    err == nil,
			Timestamp:  start,
			Duration:   cfg.now().Sub(start),
		})
	}
}

// GRPCUnaryServerInterceptor 返回 gRPC 一元服务端拦截器。
// 从 metadata 解析关联头并建立 scope，行为与 [HTTPMiddleware] 一致。
func GRPCUnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, end := serverBegin(ctx, cfg)
		resp, err := handler(ctx, req)
		end(info.FullMethod, err)
		return resp, err
	}
}

// GRPCStreamServerInterceptor 返回 gRPC 流式服务端拦截器。
func GRPCStreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)

	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, end := serverBegin(ss.Context(), cfg)
		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
		end(info.FullMethod, err)
		return err
	}
}

// wrappedServerStream 包装 ServerStream 以覆盖 Context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context 返回包装后的 context
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// =============================================================================
// gRPC 客户端拦截器
// =============================================================================

// injectOutgoing 把关联头写入 outgoing metadata 的副本，返回新 context 与依赖 ID。
func injectOutgoing(ctx context.Context, in *Injector) (context.Context, string) {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	depID := in.Inject(ctx, MetadataCarrier(md))
	return metadata.NewOutgoingContext(ctx, md), depID
}

// GRPCUnaryClientInterceptor 返回 gRPC 客户端一元拦截器。
//
// 注入关联头；配置了 Tracker 时跟踪依赖，并从响应 header 读取目标应用标识。
func GRPCUnaryClientInterceptor(opts ...Option) grpc.UnaryClientInterceptor {
	cfg := applyOptions(opts)

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		outCtx, depID := injectOutgoing(ctx, cfg.injector)
		if cfg.tracker == nil {
			return invoker(outCtx, method, req, reply, cc, opts...)
		}

		dep := cfg.tracker.BeginDependency(ctx, method, depID)
		dep.Type = DependencyTypeGRPC
		if cc != nil {
			dep.Target = cc.Target()
		}

		var header metadata.MD
		err := invoker(outCtx, method, req, reply, cc, append(slices.Clip(opts), grpc.Header(&header))...)
		cfg.injector.ParseResponse(ctx, MetadataCarrier(header), dep)
		cfg.tracker.EndDependency(ctx, depID, status.Code(err).String(), err == nil)
		return err
	}
}

// GRPCStreamClientInterceptor 返回 gRPC 客户端流式拦截器，只注入关联头。
func GRPCStreamClientInterceptor(opts ...Option) grpc.StreamClientInterceptor {
	cfg := applyOptions(opts)

	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		ctx, _ = injectOutgoing(ctx, cfg.injector)
		return streamer(ctx, desc, cc, method, opts...)
	}
}

package xtrace

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
)

// =============================================================================
// HTTP 服务端中间件
// =============================================================================

// HTTPMiddleware 返回 HTTP 服务端中间件。
//
// 对每个请求：解析入站关联头并建立 scope；把操作存入 Holder；
// 在响应头 Request-Context 写入本地应用标识；请求结束后输出请求遥测并结束 scope。
func HTTPMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := cfg.now()
			inbound := propagation.HeaderCarrier(r.Header)

			ctx, scope := begin(r.Context(), cfg.resolver.Resolve(r.Context(), inbound))
			defer scope.End()

			source := cfg.injector.SourceAppID(ctx, inbound)
			cfg.injector.SetResponseTarget(ctx, propagation.HeaderCarrier(w.Header()))

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))

			if cfg.tracker != nil {
				cfg.tracker.TrackRequest(ctx, &xtelemetry.Item{
					Name:       r.Method + " " + r.URL.Path,
					Source:     source,
					Data:       r.URL.String(),
					ResultCode: strconv.Itoa(sw.status),
					Success:    sw.status < http.StatusBadRequest,
					Timestamp:  start,
					Duration:   cfg.now().Sub(start),
				})
			}
		})
	}
}

// RestoreMiddleware 返回在 scope 丢失时从 Holder 重建 scope 的中间件。
//
// 放在可能切断 context 传递的组件之后。重建的 scope 比丢失前深一层，
// ParentID 为最后已知的 ID。
func RestoreMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, end := restore(r.Context(), cfg.recorder)
			defer end()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusWriter 记录响应状态码
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// =============================================================================
// HTTP 客户端
// =============================================================================

// DependencyTypeHTTP HTTP 依赖条目的类型
const DependencyTypeHTTP = "Http"

// Transport 注入关联头并跟踪出站依赖的 http.RoundTripper。
type Transport struct {
	// Base 实际发送请求的 RoundTripper，nil 时使用 http.DefaultTransport
	Base http.RoundTripper
	// Injector nil 时使用 NewInjector()
	Injector *Injector
	// Tracker nil 时只注入头，不输出依赖条目
	Tracker *xtelemetry.Tracker
}

var _ http.RoundTripper = (*Transport)(nil)

// RoundTrip 克隆请求、注入关联头并发送。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	in := t.Injector
	if in == nil {
		in = NewInjector()
	}

	ctx := req.Context()
	// RoundTripper 不得修改调用方的请求
	req = req.Clone(ctx)
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	depID := in.Inject(ctx, propagation.HeaderCarrier(req.Header))

	if t.Tracker == nil {
		return base.RoundTrip(req)
	}

	dep := t.Tracker.BeginDependency(ctx, req.Method+" "+req.URL.Path, depID)
	dep.Type = DependencyTypeHTTP
	dep.Target = req.URL.Host
	dep.Data = req.URL.String()

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Tracker.EndDependency(ctx, depID, "", false)
		return nil, err
	}
	in.ParseResponse(ctx, propagation.HeaderCarrier(resp.Header), dep)
	t.Tracker.EndDependency(ctx, depID, strconv.Itoa(resp.StatusCode), resp.StatusCode < http.StatusBadRequest)
	return resp, nil
}

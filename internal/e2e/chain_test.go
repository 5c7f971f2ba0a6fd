//go:build e2e

package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xappid"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xtelemetry"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

type captureHandler struct {
	mu    sync.Mutex
	attrs map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Resolve()
		return true
	})

	h.mu.Lock()
	h.attrs = attrs
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *captureHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *captureHandler) snapshot() map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]slog.Value, len(h.attrs))
	for k, v := range h.attrs {
		out[k] = v
	}
	return out
}

// service 一个带关联中间件、出站 Transport 和独立遥测输出的 HTTP 服务
type service struct {
	sink    *xtelemetry.MemorySink
	tracker *xtelemetry.Tracker
	client  *http.Client
	server  *httptest.Server
}

func newService(t *testing.T, appID string, handler func(client *http.Client) http.HandlerFunc) *service {
	t.Helper()
	sink := &xtelemetry.MemorySink{}
	tracker, err := xtelemetry.NewTracker(sink)
	require.NoError(t, err)

	injector := xtrace.NewInjector(xtrace.WithAppID(xappid.Static{"ikey-" + appID: appID}, "ikey-"+appID))
	client := &http.Client{Transport: &xtrace.Transport{Injector: injector, Tracker: tracker}}
	mw := xtrace.HTTPMiddleware(xtrace.WithInjector(injector), xtrace.WithTracker(tracker))

	s := &service{
		sink:    sink,
		tracker: tracker,
		client:  client,
		server:  httptest.NewServer(mw(handler(client))),
	}
	t.Cleanup(func() {
		s.server.Close()
		tracker.Close()
	})
	return s
}

func (s *service) items(kind xtelemetry.Kind) []*xtelemetry.Item {
	var out []*xtelemetry.Item
	for _, item := range s.sink.Items() {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func get(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func TestHTTPChain_E2E(t *testing.T) {
	capture := &captureHandler{}
	enrich, err := xlog.NewEnrichHandler(capture)
	require.NoError(t, err)
	logger := slog.New(enrich)

	backend := newService(t, "app-b", func(*http.Client) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			logger.InfoContext(r.Context(), "handled")
			w.WriteHeader(http.StatusOK)
		}
	})
	frontend := newService(t, "app-a", func(client *http.Client) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := get(r.Context(), client, backend.server.URL+"/orders"); err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	req, err := http.NewRequest(http.MethodGet, frontend.server.URL+"/checkout", nil)
	require.NoError(t, err)
	req.Header.Set(xtrace.HeaderRequestID, "|client.")
	req.Header.Set(xtrace.HeaderCorrelationContext, "user=alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "appId=cid-v1:app-a", resp.Header.Get(xtrace.HeaderRequestContext))

	require.Eventually(t, func() bool {
		return len(frontend.sink.Items()) == 2 && len(backend.sink.Items()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	frontReq := frontend.items(xtelemetry.KindRequest)[0]
	frontDep := frontend.items(xtelemetry.KindDependency)[0]
	backReq := backend.items(xtelemetry.KindRequest)[0]

	// 整条链共享同一个 OperationId
	for _, item := range []*xtelemetry.Item{frontReq, frontDep, backReq} {
		assert.Equal(t, "client", item.OperationID, item.Name)
		v, ok := item.Baggage.Get("user")
		assert.True(t, ok, item.Name)
		assert.Equal(t, "alice", v, item.Name)
	}

	// 前端请求：父为客户端的 Request-Id
	assert.Equal(t, "|client.", frontReq.ParentID)
	assert.True(t, strings.HasPrefix(frontReq.ID, "|client."))
	assert.Equal(t, "GET /checkout", frontReq.Name)
	assert.Empty(t, frontReq.Source)

	// 前端依赖：由前端请求派生，目标标注了后端的应用标识
	assert.Equal(t, frontReq.ID, frontDep.ParentID)
	assert.True(t, strings.HasPrefix(frontDep.ID, frontReq.ID))
	assert.True(t, strings.HasSuffix(frontDep.ID, "."))
	assert.Equal(t, xtelemetry.TypeTrackedComponent, frontDep.Type)
	assert.True(t, strings.HasSuffix(frontDep.Target, " | cid-v1:app-b"))
	assert.Equal(t, "200", frontDep.ResultCode)
	assert.True(t, frontDep.Success)

	// 后端请求：父为前端依赖的 ID，来源为前端应用
	assert.Equal(t, frontDep.ID, backReq.ParentID)
	assert.True(t, strings.HasPrefix(backReq.ID, frontDep.ID))
	assert.Equal(t, "cid-v1:app-a", backReq.Source)
	assert.Equal(t, xreqid.Depth(frontDep.ID)+1, xreqid.Depth(backReq.ID))

	// 后端日志带有当前操作的关联标识
	attrs := capture.snapshot()
	assert.Equal(t, "client", attrs[xctx.KeyOperationID].String())
	assert.Equal(t, backReq.ID, attrs[xctx.KeyID].String())
	assert.Equal(t, frontDep.ID, attrs[xctx.KeyParentID].String())
}

func TestHTTPChain_LegacyCaller_E2E(t *testing.T) {
	sink := &xtelemetry.MemorySink{}
	tracker, err := xtelemetry.NewTracker(sink)
	require.NoError(t, err)
	t.Cleanup(tracker.Close)

	resolver := xtrace.NewResolver(xtrace.WithCustomHeaders(xtrace.LegacyRootHeader, xtrace.LegacyParentHeader))
	injector := xtrace.NewInjector(xtrace.WithLegacyHeaders(xtrace.LegacyRootHeader, xtrace.LegacyParentHeader))

	downstream := make(chan http.Header, 1)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstream <- r.Header.Clone()
	}))
	t.Cleanup(down.Close)

	client := &http.Client{Transport: &xtrace.Transport{Injector: injector}}
	handler := xtrace.HTTPMiddleware(xtrace.WithResolver(resolver), xtrace.WithInjector(injector), xtrace.WithTracker(tracker))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := get(r.Context(), client, down.URL); err != nil {
				w.WriteHeader(http.StatusBadGateway)
			}
		}))
	up := httptest.NewServer(handler)
	t.Cleanup(up.Close)

	req, err := http.NewRequest(http.MethodGet, up.URL+"/legacy", nil)
	require.NoError(t, err)
	req.Header.Set(xtrace.LegacyRootHeader, "legacy-root")
	req.Header.Set(xtrace.LegacyParentHeader, "legacy-parent")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Eventually(t, func() bool { return len(sink.Items()) == 1 }, 5*time.Second, 10*time.Millisecond)
	item := sink.Items()[0]
	assert.Equal(t, "legacy-root", item.OperationID)
	assert.Equal(t, "legacy-parent", item.ParentID)

	var h http.Header
	select {
	case h = <-downstream:
	case <-time.After(5 * time.Second):
		t.Fatal("downstream not called")
	}
	assert.Equal(t, "legacy-root", h.Get(xtrace.LegacyRootHeader))
	assert.Equal(t, item.ID, h.Get(xtrace.LegacyParentHeader))
	assert.True(t, strings.HasPrefix(h.Get(xtrace.HeaderRequestID), item.ID))
}

package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/omeyang/xcorr/pkg/config/xconf"
	"github.com/omeyang/xcorr/pkg/lifecycle/xrun"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

func newTestDaemon(t *testing.T, c xconf.Correlation, downstream string) *daemon {
	t.Helper()
	d, err := newDaemon(c, downstream)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })
	return d
}

func getEcho(t *testing.T, url string, headers map[string]string) echoResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out echoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestEcho_Chain(t *testing.T) {
	back := httptest.NewServer(newTestDaemon(t, xconf.DefaultCorrelation(), "").handler())
	defer back.Close()
	front := httptest.NewServer(newTestDaemon(t, xconf.DefaultCorrelation(), back.URL+"/echo").handler())
	defer front.Close()

	out := getEcho(t, front.URL+"/echo", map[string]string{
		xtrace.HeaderRequestID:          "|abc.",
		xtrace.HeaderCorrelationContext: "user=alice",
	})

	assert.Equal(t, "standard", out.Source)
	assert.Equal(t, "abc", out.OperationID)
	assert.Equal(t, "|abc.", out.ParentID)
	assert.True(t, strings.HasPrefix(out.ID, "|abc."))
	assert.Equal(t, "user=alice", out.CorrelationContext)

	require.NotNil(t, out.Downstream, out.DownstreamError)
	down := out.Downstream
	assert.Equal(t, "abc", down.OperationID)
	// 下游的父 ID 是上游为这次调用派生的依赖 ID
	assert.True(t, strings.HasPrefix(down.ParentID, out.ID))
	assert.True(t, strings.HasSuffix(down.ParentID, "."))
	assert.True(t, strings.HasPrefix(down.ID, down.ParentID))
	assert.Equal(t, "user=alice", down.CorrelationContext)
}

func TestEcho_DownstreamError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	front := httptest.NewServer(newTestDaemon(t, xconf.DefaultCorrelation(), failing.URL).handler())
	defer front.Close()

	out := getEcho(t, front.URL+"/echo", nil)
	assert.Equal(t, "fresh", out.Source)
	assert.Nil(t, out.Downstream)
	assert.Equal(t, "downstream status 503", out.DownstreamError)
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(newTestDaemon(t, xconf.DefaultCorrelation(), "").handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(xtrace.HeaderRequestContext))
}

func TestGRPCHealth(t *testing.T) {
	c := xconf.DefaultCorrelation()
	c.InstrumentationKey = "ikey"
	c.AppID = "app-d"
	d := newTestDaemon(t, c, "")

	lis := bufconn.Listen(1 << 20)
	srv := d.grpcServer()
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), "request-id", "|grpc.")
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}, grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	assert.Equal(t, []string{"appId=cid-v1:app-d"}, header.Get("request-context"))
}

func TestDaemon_Propagator(t *testing.T) {
	d := newTestDaemon(t, xconf.DefaultCorrelation(), "")
	fields := d.propagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, xtrace.HeaderRequestID)
}

func TestNewDaemon_InvalidLogFormat(t *testing.T) {
	c := xconf.DefaultCorrelation()
	c.Log.Format = "xml"
	_, err := newDaemon(c, "")
	assert.Error(t, err)
}

func TestNewDaemon_MeterProvider(t *testing.T) {
	d := newTestDaemon(t, xconf.DefaultCorrelation(), "")
	_, ok := d.meterProvider.(*sdkmetric.MeterProvider)
	assert.True(t, ok)

	c := xconf.DefaultCorrelation()
	c.MetricsInterval = 0
	d = newTestDaemon(t, c, "")
	assert.Equal(t, otel.GetMeterProvider(), d.meterProvider)
}

func TestServe(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	dir := t.TempDir()
	path := filepath.Join(dir, "xcorr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("correlation:\n  log:\n    level: warn\n"), 0o600))

	ready := make(chan net.Addr, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, settings{
			configPath:      path,
			httpAddr:        "127.0.0.1:0",
			grpcAddr:        "127.0.0.1:0",
			shutdownTimeout: time.Second,
			onReady:         func(httpAddr, _ net.Addr) { ready <- httpAddr },
		}, []xrun.Option{xrun.WithSignals()})
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	}
	url := "http://" + addr.String() + "/echo"

	out := getEcho(t, url, map[string]string{"x-root": "legacy"})
	assert.Equal(t, "fresh", out.Source)

	// 配置热更新后自定义头生效
	require.NoError(t, os.WriteFile(path, []byte("correlation:\n  root_header: x-root\n"), 0o600))
	assert.Eventually(t, func() bool {
		return getEcho(t, url, map[string]string{"x-root": "legacy"}).Source == "custom"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Cleanup(xlog.ResetDefault)
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })
	err := serve(context.Background(), settings{configPath: filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	assert.ErrorIs(t, err, xconf.ErrLoadFailed)

	err = serve(context.Background(), settings{httpAddr: "256.0.0.1:bad"}, nil)
	assert.Error(t, err)
}

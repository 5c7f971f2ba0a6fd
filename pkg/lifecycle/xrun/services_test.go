package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func TestHTTPServerOn_ShutdownOnCancel(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), ReadHeaderTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- HTTPServerOn(srv, lis, time.Second)(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + lis.Addr().String())
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHTTPServerOn_ExternalShutdown(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- HTTPServerOn(srv, lis, 0)(context.Background()) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", lis.Addr().String())
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}

func TestHTTPServer_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:bad", ReadHeaderTimeout: time.Second}
	assert.Error(t, HTTPServer(srv, 0)(context.Background()))
	assert.Nil(t, HTTPServer(nil, 0))
	assert.Nil(t, HTTPServerOn(srv, nil, 0))
}

func TestGRPC_GracefulStop(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	srv := grpc.NewServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- GRPC(srv, lis)(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("grpc server did not stop")
	}
	assert.Nil(t, GRPC(nil, lis))
}

type failingGRPC struct{ stops atomic.Int32 }

func (f *failingGRPC) Serve(net.Listener) error { return errors.New("serve failed") }
func (f *failingGRPC) GracefulStop()            { f.stops.Add(1) }

func TestGRPC_ServeError(t *testing.T) {
	f := &failingGRPC{}
	err := GRPC(f, bufconn.Listen(1))(context.Background())
	assert.EqualError(t, err, "serve failed")
	assert.Zero(t, f.stops.Load())
}

func TestStartStop(t *testing.T) {
	var started, stopped atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StartStop(func() { started.Store(true) }, func() error {
		stopped.Store(true)
		return nil
	})(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, started.Load())
	assert.True(t, stopped.Load())

	stopErr := errors.New("stop failed")
	err = StartStop(nil, func() error { return stopErr })(ctx)
	assert.ErrorIs(t, err, stopErr)
}

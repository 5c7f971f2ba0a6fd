package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// HTTPServer 把 *http.Server 包装为服务：ctx 取消时调用 Shutdown 优雅关闭。
//
// shutdownTimeout <= 0 表示等待全部在途请求完成。
func HTTPServer(srv *http.Server, shutdownTimeout time.Duration) Service {
	if srv == nil {
		return nil
	}
	return func(ctx context.Context) error {
		lis, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		return serveHTTP(ctx, srv, lis, shutdownTimeout)
	}
}

// HTTPServerOn 与 HTTPServer 相同，但使用已创建的监听器
func HTTPServerOn(srv *http.Server, lis net.Listener, shutdownTimeout time.Duration) Service {
	if srv == nil || lis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return serveHTTP(ctx, srv, lis, shutdownTimeout)
	}
}

func serveHTTP(ctx context.Context, srv *http.Server, lis net.Listener, shutdownTimeout time.Duration) error {
	shutdownErr := make(chan error, 1)
	served := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sctx := context.WithoutCancel(ctx)
			if shutdownTimeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
				defer cancel()
			}
			shutdownErr <- srv.Shutdown(sctx)
		case <-served:
		}
	}()

	err := srv.Serve(lis)
	if !errors.Is(err, http.ErrServerClosed) {
		close(served)
		return err
	}
	if ctx.Err() == nil {
		// 外部直接 Shutdown/Close
		close(served)
		return nil
	}
	return <-shutdownErr
}

// GRPCServer 可优雅关闭的 gRPC 服务，*grpc.Server 满足此接口
type GRPCServer interface {
	Serve(lis net.Listener) error
	GracefulStop()
}

// GRPC 把 gRPC 服务包装为服务：ctx 取消时调用 GracefulStop。
func GRPC(srv GRPCServer, lis net.Listener) Service {
	if srv == nil || lis == nil {
		return nil
	}
	return func(ctx context.Context) error {
		served := make(chan struct{})
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			select {
			case <-ctx.Done():
				srv.GracefulStop()
			case <-served:
			}
		}()

		err := srv.Serve(lis)
		close(served)
		<-stopped
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

// StartStop 适配 Start/Stop 风格的后台组件：启动后阻塞到 ctx 取消，再调用 stop。
func StartStop(start func(), stop func() error) Service {
	return func(ctx context.Context) error {
		if start != nil {
			start()
		}
		<-ctx.Done()
		if stop != nil {
			if err := stop(); err != nil {
				return err
			}
		}
		return ctx.Err()
	}
}

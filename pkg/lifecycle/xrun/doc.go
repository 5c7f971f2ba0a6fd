// Package xrun 管理一组长期运行的服务：并发启动、任一失败或收到信号时协调关闭。
//
// 典型用法是在 main 中把 HTTP、gRPC 服务和配置监视器放进同一个 Run：
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithName("xcorrd")},
//	    xrun.Named("http", xrun.HTTPServer(httpSrv, 10*time.Second)),
//	    xrun.Named("grpc", xrun.GRPC(grpcSrv, lis)),
//	    xrun.Named("watch", xrun.StartStop(w.Start, w.Stop)),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
package xrun

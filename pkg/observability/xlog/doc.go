// Package xlog 基于 log/slog 的结构化日志。
//
// 所有日志方法都强制传入 context.Context，[EnrichHandler] 从中读取当前操作的
// operation_id / parent_id / id（见 xctx），自动附加到每条日志，
// 使同一调用链上各服务的日志可以按 operation_id 串联。
//
// # 构建
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/app.log", xlog.RotationConfig{MaxSizeMB: 100}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// # 全局 Logger
//
// 关联引擎内部的降级告警（头读写失败、ID 溢出等）走全局函数 [Warn]，
// 服务启动时可用 [SetDefault] 替换为自己构建的实例。
package xlog

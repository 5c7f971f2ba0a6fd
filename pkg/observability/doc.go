// Package observability 提供关联引擎的可观测性子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动附加当前操作的关联标识
//   - xtrace: 入站解析与出站注入，HTTP/gRPC 中间件与拦截器
//   - xtelemetry: 请求与依赖遥测的补全、跟踪和输出
//   - xmetrics: 基于 OpenTelemetry 的关联指标
package observability

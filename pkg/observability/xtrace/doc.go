// Package xtrace 负责 Request-Id 关联协议在传输层的解析与注入。
//
// # 协议头
//
//	Request-Id           上游调用方的 ID（层级式 |root.seg_ 或不透明字符串）
//	Correlation-Context  关联上下文，逗号分隔的 key=value
//	Request-Context      跨组件应用标识，appId=cid-v1:<appId>
//
// 另有两个可配置的旧式头（根 ID 与父 ID），默认不启用。
//
// # 入站解析优先级
//
// [Resolver.Resolve] 严格按以下顺序决定操作三元组，标准头存在时绝不混用旧式头：
//
//  1. Request-Id 非空：解析 Correlation-Context；Request-Id 不是层级式且上下文含 Id 条目时，
//     以该条目为根，否则层级式取根部分、不透明 ID 自身作根。ParentID 总是原始 Request-Id。
//  2. 自定义根头、自定义父头（仅在配置了名称时读取）。
//  3. 都没有时生成新的层级 ID。
//
// 读取头时发生的 panic 在边界处恢复并记录警告，解析退化为第 3 级。
//
// # 出站注入
//
// [Injector.Inject] 从当前 scope 派生依赖类型子 ID 写入 Request-Id，
// 同时写入 Correlation-Context、可选的旧式头与 Request-Context。
//
// # 传输层适配
//
// HTTP：[HTTPMiddleware] 服务端中间件、[RestoreMiddleware] 与客户端 [Transport]。
// gRPC：[GRPCUnaryServerInterceptor] 等四个拦截器，metadata 通过 [MetadataCarrier] 读写。
// 其他协议可直接使用 [Propagator]（实现 OpenTelemetry TextMapPropagator）。
package xtrace

// Package xtelemetry 把当前操作的关联标识合并到遥测条目，并跟踪出站依赖调用。
//
// [Initialize] 只处理 OperationID 为空的条目：从 context 的活动 scope 复制
// operation_id，按条目类型填充 id / parent_id，并把关联上下文按插入顺序合并进来，
// 条目自身已有的键优先。没有活动 scope 时退回请求入口保存的 [xctx.Holder]。
//
// [Tracker] 以出站请求携带的 Request-Id 为键登记待完成的依赖调用，
// 响应到达时取回并补全结果后交给 [Sink]。待完成条目按 ID 哈希分片存放在带 TTL 的 LRU 中，
// 未收到响应的调用到期后被丢弃并记录告警。
package xtelemetry

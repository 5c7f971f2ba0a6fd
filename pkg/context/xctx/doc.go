// Package xctx 在 context.Context 中携带当前操作的关联标识。
//
// 每个逻辑操作（一次入站请求、一次出站调用）对应一个 [Scope]。Scope 是不可变节点，
// 通过 parent 指针组成一棵树，挂在 context 的私有 key 下随调用链传递：
//
//	Establish(ctx, op)      - 开启新 scope，未指定的字段从外层 scope 继承
//	StartChild(ctx, kind)   - 基于当前 ID 派生子 scope（并发分叉、出站调用）
//	Current(ctx)            - 读取最内层未结束的 scope
//	Scope.End()             - 结束 scope，外层 scope 重新成为当前
//
// # 操作三元组
//
//   - operation_id : 根操作 ID，整个调用链不变
//   - parent_id    : 直接调用方的 ID，根操作为空
//   - id           : 当前操作自身的 ID
//
// 另附关联上下文 [xbaggage.Baggage]，默认原样传给子操作。
//
// # 丢失与恢复
//
// 不携带 scope 的 context（例如框架在异步跳转时没有传递原 ctx）上，
// [Current] 返回 false。请求入口把操作存入 [Holder]，
// 在连续性无法保证的位置调用 [RestoreIfLost]：它会以最后已知的 ID 为父，
// 建立一个新的子 scope，而不是复用原 scope。
// 因此恢复后产生的遥测比恢复前深一层。
//
// # 命名约定
//
//	Xxx(ctx)         - 读取：缺失时返回零值
//	RequireXxx(ctx)  - 强制读取：缺失时返回错误
//
// # 哨兵错误
//
//	ErrNilContext   - context 为 nil
//	ErrNoOperation  - context 中没有活动的 scope
package xctx

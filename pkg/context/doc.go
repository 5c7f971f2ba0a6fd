// Package context 提供环境操作上下文相关的子包。
//
// 子包列表：
//   - xctx: 在 context.Context 中保存当前操作（scope 树与 Holder）
//
// 所有上下文信息通过 context.Context 传递，不使用 goroutine 本地存储。
package context

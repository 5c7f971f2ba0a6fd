// Package correlation 提供 Request-Id 关联协议的基础子包。
//
// 子包列表：
//   - xreqid: 层级式 Request-Id 的生成与解析
//   - xbaggage: Correlation-Context 键值对
//   - xappid: instrumentation key 到应用标识的解析
package correlation

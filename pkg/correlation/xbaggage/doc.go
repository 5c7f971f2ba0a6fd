// Package xbaggage 实现 Correlation-Context 头携带的关联上下文（baggage）。
//
// Baggage 是按插入顺序保存、键唯一的字符串映射，随调用链向下游传递。
// 入站解析时对每个条目做尺寸校验：
//
//   - 键非空且不超过 16 个字符
//   - 值非空且不超过 41 个字符
//
// 不满足条件的条目被静默丢弃，丢弃数量通过 [Parse] 的第二个返回值给出，
// 供调用方记录指标。
//
// # 合并语义
//
// [Baggage.Merge] 采用先写入者优先：目标中已有的键保持原值，
// 只追加来源中新出现的键，顺序按来源的插入顺序。
//
// # 线上格式
//
//	Correlation-Context: k1=v1, k2=v2
package xbaggage

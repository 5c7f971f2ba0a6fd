// Package xreqid 生成和解析层级式 Request-Id。
//
// # ID 格式
//
// 层级式 ID 以 '|' 开头，根部分位于 '|' 与第一个 '.' 之间，
// 之后每一段以 '.'（依赖调用）或 '_'（请求）结尾：
//
//	|web01-5f3a2b1c-1a2b.      根 ID
//	|web01-5f3a2b1c-1a2b.9f8e7d6c_      服务端请求
//	|web01-5f3a2b1c-1a2b.9f8e7d6c_0a1b2c3d.     下游依赖调用
//
// 不以 '|' 开头的非空字符串视为不透明 ID，其本身即为根。
//
// # 根 ID
//
// 根 ID 形如 <hostname>-<启动时间戳 hex>-<计数器 hex>。
// 机器前缀在首次使用时计算并通过 CAS 发布（先写入者胜出），
// 计数器以随机 32 位值为种子原子递增，降低进程重启后的碰撞概率。
//
// # 溢出
//
// 生成的 ID 最长 [MaxLength]（1024）字符。追加后缀会超长时，
// 从 MaxLength-9 处向前寻找最近的 '.' 或 '_' 截断，
// 追加 8 位十六进制后缀和 '#' 标记截断点；找不到分隔符时重新生成根 ID。
//
// # 使用方式
//
//	id := xreqid.GenerateNewHierarchicalID()            // |host-ts-n.
//	req := xreqid.GenerateRequestID("|abc.1")           // |abc.1.xxxxxxxx_
//	dep := xreqid.GenerateDependencyID(req)             // |abc.1.xxxxxxxx_yyyyyyyy.
//	root := xreqid.RootID(dep)                          // abc
//
// 包级函数使用默认 [Generator]；需要隔离状态（测试、固定主机名）时使用 [NewGenerator]。
package xreqid

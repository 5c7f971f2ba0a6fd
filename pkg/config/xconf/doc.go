// Package xconf 加载关联引擎的配置，基于 koanf 实现。
//
// # 格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # Correlation
//
// [Correlation] 描述引擎的全部可配置项，通过 [LoadCorrelation] 从配置的某个路径读取，
// 未出现的字段保留 [DefaultCorrelation] 中的默认值。它提供到各组件选项的映射：
//
//	cfg, _ := xconf.New("/etc/app/xcorr.yaml")
//	c, _ := xconf.LoadCorrelation(cfg, "correlation")
//	resolver := xtrace.NewResolver(c.ResolverOptions()...)
//
// # 并发安全
//
// Reload 通过互斥锁串行化，解析成功后原子替换 koanf 实例；
// Client 与 Unmarshal 读取的是调用时刻的快照。
//
// # 热更新
//
// [Watch] 监视配置文件所在目录（兼容编辑器的原子写入），带防抖。
// [ApplyCorrelation] 返回的回调把新的头名称写入 Resolver 与 Injector 并调整日志级别。
// Stop 返回后不再有回调执行。
package xconf

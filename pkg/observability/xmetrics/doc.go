// Package xmetrics 记录关联引擎的运行指标。
//
// 指标通过 OpenTelemetry metric API 上报，由调用方提供 MeterProvider：
//
//	xcorr.resolve.total{source}      入站解析次数，source = standard|custom|fresh
//	xcorr.baggage.dropped            被尺寸校验丢弃的 Correlation-Context 条目
//	xcorr.scope.restored             scope 丢失后重建的次数
//	xcorr.header.failure{direction}  读写头时被恢复的 panic，direction = in|out
//	xcorr.id.overflow                ID 超长截断次数（异步采集）
//	xcorr.dependency.duration{success} 出站依赖耗时
//
// 未配置时使用 [NoopRecorder]。
package xmetrics

// Package xappid 把埋点 instrumentation key 解析为跨组件关联使用的应用标识（appId）。
//
// 出站请求的 Request-Context 头携带 "appId=cid-v1:<appId>"，下游据此识别调用方；
// 响应中回传目标的 appId，用于标注依赖调用的目标组件。
//
// 解析必须不阻塞请求热路径：[Lookup.AppID] 只读缓存，未命中时立即返回 false，
// 同时在后台发起一次去重的查询：
//
//	GET {endpoint}/api/profiles/{ikey}/appId
//
// 后台查询带重试（avast/retry-go）与熔断（sony/gobreaker），
// 成功结果与失败标记都写入 ristretto 缓存，失败标记在退避窗口内阻止重复查询。
//
// 静态配置场景使用 [Static]。
package xappid

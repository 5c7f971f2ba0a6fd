package xtrace

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

// 协议头名称
const (
	HeaderRequestID          = "Request-Id"
	HeaderCorrelationContext = "Correlation-Context"
	HeaderRequestContext     = "Request-Context"
)

// 旧版 SDK 使用的自定义头名称，需要兼容时传给 WithCustomHeaders / WithLegacyHeaders
const (
	LegacyRootHeader   = "x-ms-request-root-id"
	LegacyParentHeader = "x-ms-request-id"
)

const (
	// RequestContextAppIDKey Request-Context 中携带应用标识的键
	RequestContextAppIDKey = "appId"

	// AppIDPrefix 应用标识值的版本前缀
	AppIDPrefix = "cid-v1:"
)

// FormatAppID 返回 Request-Context 中使用的应用标识值
func FormatAppID(appID string) string {
	return AppIDPrefix + appID
}

// RequestContextValue 读取 Request-Context 中 key 对应的值，不存在时返回空串。
//
// Request-Context 是逗号分隔的 key=value 列表，可能分布在多个头值中。
func RequestContextValue(carrier propagation.TextMapCarrier, key string) string {
	if carrier == nil {
		return ""
	}
	for _, v := range getValues(carrier, HeaderRequestContext) {
		for item := range strings.SplitSeq(v, ",") {
			k, val, ok := strings.Cut(item, "=")
			if ok && strings.TrimSpace(k) == key {
				return strings.TrimSpace(val)
			}
		}
	}
	return ""
}

// SetRequestContextValue 设置 Request-Context 中的 key，保留其他键。
//
// 已存在同名键时原位替换，否则追加到末尾。
func SetRequestContextValue(carrier propagation.TextMapCarrier, key, value string) {
	if carrier == nil {
		return
	}
	name := HeaderRequestContext
	if carrier.Get(name) == "" {
		if k, ok := foldKey(carrier, name); ok {
			name = k
		}
	}
	var items []string
	replaced := false
	for _, v := range getValues(carrier, name) {
		for item := range strings.SplitSeq(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if k, _, _ := strings.Cut(item, "="); strings.TrimSpace(k) == key {
				if replaced {
					continue
				}
				item = key + "=" + value
				replaced = true
			}
			items = append(items, item)
		}
	}
	if !replaced {
		items = append(items, key+"="+value)
	}
	carrier.Set(name, strings.Join(items, ", "))
}

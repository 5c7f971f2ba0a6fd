package xtrace

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// ErrCarrierPanic 读写 carrier 时发生 panic
var ErrCarrierPanic = errors.New("xtrace: carrier panicked")

// MetadataCarrier 把 gRPC metadata 适配为 TextMapCarrier。
//
// metadata 的 key 统一为小写，Get/Set 对大小写不敏感。
type MetadataCarrier metadata.MD

var _ propagation.TextMapCarrier = MetadataCarrier(nil)

// Get 返回第一个值
func (c MetadataCarrier) Get(key string) string {
	v := metadata.MD(c).Get(key)
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Set 覆盖已有值
func (c MetadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

// Keys 返回全部 key
func (c MetadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Values 返回 key 的全部值
func (c MetadataCarrier) Values(key string) []string {
	return metadata.MD(c).Get(key)
}

// valuesGetter 支持多值读取的 carrier，如 propagation.HeaderCarrier
type valuesGetter interface {
	Values(key string) []string
}

// getValues 读取 key 的全部值；carrier 不支持多值时退回 Get。
// 按原名读不到时再按大小写不敏感匹配一次。
func getValues(carrier propagation.TextMapCarrier, key string) []string {
	if v := readValues(carrier, key); len(v) > 0 {
		return v
	}
	if k, ok := foldKey(carrier, key); ok {
		return readValues(carrier, k)
	}
	return nil
}

func readValues(carrier propagation.TextMapCarrier, key string) []string {
	if vg, ok := carrier.(valuesGetter); ok {
		return vg.Values(key)
	}
	if v := carrier.Get(key); v != "" {
		return []string{v}
	}
	return nil
}

// getValue 读取单值，规则同 getValues
func getValue(carrier propagation.TextMapCarrier, key string) string {
	if v := carrier.Get(key); v != "" {
		return v
	}
	if k, ok := foldKey(carrier, key); ok {
		return carrier.Get(k)
	}
	return ""
}

// getTrimmed 读取单值并去除空白
func getTrimmed(carrier propagation.TextMapCarrier, key string) string {
	return strings.TrimSpace(getValue(carrier, key))
}

// foldKey 在 carrier 的 key 中查找与 key 仅大小写不同的一个。
//
// 头名称不区分大小写，但 propagation.MapCarrier 等按原样存储 key。
func foldKey(carrier propagation.TextMapCarrier, key string) (string, bool) {
	for _, k := range carrier.Keys() {
		if k != key && strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// guard 执行 fn，把其中的 panic 转换为 ErrCarrierPanic。
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCarrierPanic, r)
		}
	}()
	fn()
	return nil
}

package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyHeader    = "header"
	KeySource    = "source"
	KeyPanic     = "panic"
	KeyAppID     = "app_id"
)

// Err 错误属性，err 为 nil 时返回空属性（被 slog 忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Header 头名称属性
func Header(name string) slog.Attr {
	return slog.String(KeyHeader, name)
}

// Panic 恢复出的 panic 值
func Panic(v any) slog.Attr {
	return slog.Any(KeyPanic, v)
}

// AppID 应用标识属性
func AppID(id string) slog.Attr {
	return slog.String(KeyAppID, id)
}

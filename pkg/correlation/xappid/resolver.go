package xappid

import (
	"context"
	"errors"
)

// Resolver 应用标识解析器，实现必须并发安全且不阻塞。
type Resolver interface {
	// AppID 返回 instrumentationKey 对应的应用标识，暂不可用时返回 false
	AppID(ctx context.Context, instrumentationKey string) (string, bool)
}

var (
	// ErrEmptyEndpoint Lookup 的 profile 服务地址为空
	ErrEmptyEndpoint = errors.New("xappid: empty endpoint")

	// ErrEmptyKey instrumentation key 为空
	ErrEmptyKey = errors.New("xappid: empty instrumentation key")

	// ErrClosed Lookup 已关闭
	ErrClosed = errors.New("xappid: lookup closed")

	// ErrUnexpectedStatus profile 服务返回非 2xx
	ErrUnexpectedStatus = errors.New("xappid: unexpected status")

	// ErrEmptyAppID profile 服务返回空 appId
	ErrEmptyAppID = errors.New("xappid: empty app id in response")
)

// Static 固定映射：instrumentation key → appId
type Static map[string]string

var _ Resolver = Static(nil)

// AppID 查表
func (s Static) AppID(_ context.Context, instrumentationKey string) (string, bool) {
	id, ok := s[instrumentationKey]
	return id, ok && id != ""
}

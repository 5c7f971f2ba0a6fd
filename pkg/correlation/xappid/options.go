package xappid

import (
	"net/http"
	"time"
)

const (
	defaultTTL         = 12 * time.Hour
	defaultFailureTTL  = 30 * time.Second
	defaultTimeout     = 5 * time.Second
	defaultAttempts    = 3
	defaultRetryDelay  = 200 * time.Millisecond
	defaultTripFailure = 5
	defaultOpenTimeout = 30 * time.Second
	defaultMaxEntries  = 1024
)

type lookupOptions struct {
	client      *http.Client
	ttl         time.Duration
	failureTTL  time.Duration
	timeout     time.Duration
	attempts    uint
	retryDelay  time.Duration
	tripFailure uint32
	openTimeout time.Duration
	maxEntries  int64
}

// LookupOption Lookup 配置选项
type LookupOption func(*lookupOptions)

// WithHTTPClient 替换 HTTP 客户端，默认 http.DefaultClient
func WithHTTPClient(c *http.Client) LookupOption {
	return func(o *lookupOptions) {
		if c != nil {
			o.client = c
		}
	}
}

// WithTTL 成功结果缓存时长，默认 12 小时
func WithTTL(d time.Duration) LookupOption {
	return func(o *lookupOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithFailureTTL 失败后的退避窗口，窗口内不再查询同一个 key，默认 30 秒
func WithFailureTTL(d time.Duration) LookupOption {
	return func(o *lookupOptions) {
		if d > 0 {
			o.failureTTL = d
		}
	}
}

// WithTimeout 单次后台查询（含重试）的总超时，默认 5 秒
func WithTimeout(d time.Duration) LookupOption {
	return func(o *lookupOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry 重试次数与间隔，默认 3 次、200ms
func WithRetry(attempts uint, delay time.Duration) LookupOption {
	return func(o *lookupOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if delay >= 0 {
			o.retryDelay = delay
		}
	}
}

// WithBreaker 熔断参数：连续失败 failures 次后打开，openTimeout 后进入半开
func WithBreaker(failures uint32, openTimeout time.Duration) LookupOption {
	return func(o *lookupOptions) {
		if failures > 0 {
			o.tripFailure = failures
		}
		if openTimeout > 0 {
			o.openTimeout = openTimeout
		}
	}
}

// WithMaxEntries 缓存的 key 数量上限，默认 1024
func WithMaxEntries(n int64) LookupOption {
	return func(o *lookupOptions) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

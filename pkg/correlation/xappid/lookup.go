package xappid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/avast/retry-go/v5"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// maxBodyBytes appId 响应体上限
const maxBodyBytes = 1024

// Lookup 通过 profile 服务查询 appId，带缓存、去重、重试与熔断。
type Lookup struct {
	endpoint string
	opts     lookupOptions

	// 失败标记以空串存入缓存
	cache   *ristretto.Cache[string, string]
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker[string]

	pending sync.Map
	// mu 保证 closed 置位后不再有 wg.Add
	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

var _ Resolver = (*Lookup)(nil)

// NewLookup 创建 Lookup。endpoint 形如 "https://dc.example.com"。
func NewLookup(endpoint string, opts ...LookupOption) (*Lookup, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	o := lookupOptions{
		client:      http.DefaultClient,
		ttl:         defaultTTL,
		failureTTL:  defaultFailureTTL,
		timeout:     defaultTimeout,
		attempts:    defaultAttempts,
		retryDelay:  defaultRetryDelay,
		tripFailure: defaultTripFailure,
		openTimeout: defaultOpenTimeout,
		maxEntries:  defaultMaxEntries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: o.maxEntries * 10,
		MaxCost:     o.maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("xappid: create cache: %w", err)
	}

	l := &Lookup{endpoint: endpoint, opts: o, cache: cache}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "xappid:" + endpoint,
		MaxRequests: 1,
		Timeout:     o.openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.tripFailure
		},
		// 404 等确定性错误说明服务可达，不计入熔断
		IsSuccessful: func(err error) bool {
			return err == nil || permanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			xlog.Warn(context.Background(), "xappid: breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return l, nil
}

// AppID 读取缓存；未命中时返回 false 并触发后台查询。
func (l *Lookup) AppID(_ context.Context, instrumentationKey string) (string, bool) {
	if instrumentationKey == "" || l.closed.Load() {
		return "", false
	}
	if id, ok := l.cache.Get(instrumentationKey); ok {
		// 失败标记命中：退避窗口内
		return id, id != ""
	}
	l.refresh(instrumentationKey)
	return "", false
}

// refresh 每个 key 同一时刻至多一个后台查询。
func (l *Lookup) refresh(key string) {
	if _, loaded := l.pending.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	l.mu.Lock()
	if l.closed.Load() {
		l.mu.Unlock()
		l.pending.Delete(key)
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()
	go func() {
		defer l.wg.Done()
		defer l.pending.Delete(key)
		ctx, cancel := context.WithTimeout(l.ctx, l.opts.timeout)
		defer cancel()
		if _, err := l.Fetch(ctx, key); err != nil && !l.closed.Load() {
			xlog.Warn(ctx, "xappid: lookup failed",
				slog.String("endpoint", l.endpoint), xlog.Err(err))
		}
	}()
}

// Fetch 同步查询并写入缓存。并发的同 key 调用共享一次请求。
func (l *Lookup) Fetch(ctx context.Context, instrumentationKey string) (string, error) {
	if instrumentationKey == "" {
		return "", ErrEmptyKey
	}
	if l.closed.Load() {
		return "", ErrClosed
	}
	v, err, _ := l.group.Do(instrumentationKey, func() (any, error) {
		id, err := l.breaker.Execute(func() (string, error) {
			return retry.NewWithData[string](
				retry.Context(ctx),
				retry.Attempts(l.opts.attempts),
				retry.Delay(l.opts.retryDelay),
				retry.DelayType(retry.FixedDelay),
				retry.LastErrorOnly(true),
				retry.RetryIf(func(err error) bool { return !permanent(err) }),
			).Do(func() (string, error) {
				return l.get(ctx, instrumentationKey)
			})
		})
		if err != nil {
			l.cache.SetWithTTL(instrumentationKey, "", 1, l.opts.failureTTL)
			l.cache.Wait()
			return "", err
		}
		l.cache.SetWithTTL(instrumentationKey, id, 1, l.opts.ttl)
		l.cache.Wait()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	id, _ := v.(string)
	return id, nil
}

// StatusError profile 服务返回的非 2xx 状态
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xappid: unexpected status %d", e.Code)
}

// Is 使 errors.Is(err, ErrUnexpectedStatus) 成立
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// permanent 判断错误是否确定性失败：重试没有意义，也不说明服务不可用。
func permanent(err error) bool {
	if errors.Is(err, ErrEmptyAppID) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

// get 单次 HTTP 查询
func (l *Lookup) get(ctx context.Context, key string) (string, error) {
	u := l.endpoint + "/api/profiles/" + url.PathEscape(key) + "/appId"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.opts.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	id := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if id == "" {
		return "", ErrEmptyAppID
	}
	return id, nil
}

// Close 取消并等待所有后台查询，然后释放缓存。可重复调用。
func (l *Lookup) Close() error {
	l.mu.Lock()
	first := l.closed.CompareAndSwap(false, true)
	l.mu.Unlock()
	if !first {
		return nil
	}
	l.cancel()
	l.wg.Wait()
	l.cache.Close()
	return nil
}

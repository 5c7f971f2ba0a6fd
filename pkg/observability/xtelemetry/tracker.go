package xtelemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xmetrics"
)

const (
	defaultPendingSize = 10000
	defaultPendingTTL  = 5 * time.Minute
)

var (
	// ErrNilSink Tracker 的 Sink 为 nil
	ErrNilSink = errors.New("xtelemetry: nil sink")

	// ErrInvalidPendingSize 待完成条目上限必须为正
	ErrInvalidPendingSize = errors.New("xtelemetry: invalid pending size")
)

type trackerOptions struct {
	pendingSize int
	pendingTTL  time.Duration
	recorder    xmetrics.Recorder
	now         func() time.Time
}

// TrackerOption Tracker 配置选项
type TrackerOption func(*trackerOptions)

// WithPending 设置待完成依赖的容量与超时，超时的依赖被丢弃并告警
func WithPending(size int, ttl time.Duration) TrackerOption {
	return func(o *trackerOptions) {
		o.pendingSize = size
		if ttl > 0 {
			o.pendingTTL = ttl
		}
	}
}

// WithRecorder 设置指标记录器
func WithRecorder(r xmetrics.Recorder) TrackerOption {
	return func(o *trackerOptions) {
		o.recorder = r
	}
}

// withClock 仅测试使用
func withClock(now func() time.Time) TrackerOption {
	return func(o *trackerOptions) {
		o.now = now
	}
}

// Tracker 跟踪请求与出站依赖并输出到 Sink。
type Tracker struct {
	sink     Sink
	recorder xmetrics.Recorder
	now      func() time.Time
	pending  *pendingStore
}

// NewTracker 创建 Tracker，使用完毕后调用 Close。
func NewTracker(sink Sink, opts ...TrackerOption) (*Tracker, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	o := trackerOptions{
		pendingSize: defaultPendingSize,
		pendingTTL:  defaultPendingTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.pendingSize <= 0 {
		return nil, ErrInvalidPendingSize
	}

	t := &Tracker{
		sink:     sink,
		recorder: xmetrics.OrNoop(o.recorder),
		now:      o.now,
	}
	t.pending = newPendingStore(o.pendingSize, o.pendingTTL, func(item *Item) {
		xlog.Warn(context.Background(), "xtelemetry: dependency abandoned without response",
			slog.String("item_id", item.ID),
			slog.String("name", item.Name))
	})
	return t, nil
}

// TrackRequest 补全并输出一条请求条目
func (t *Tracker) TrackRequest(ctx context.Context, item *Item) {
	if item == nil {
		return
	}
	item.Kind = KindRequest
	Initialize(ctx, item)
	t.sink.Track(ctx, item)
}

// Track 补全并输出任意条目
func (t *Tracker) Track(ctx context.Context, item *Item) {
	if item == nil {
		return
	}
	Initialize(ctx, item)
	t.sink.Track(ctx, item)
}

// BeginDependency 登记一次出站依赖。
//
// dependencyID 是随请求发出的 Request-Id；条目的 ParentID 为发出调用的当前操作 ID。
// 同一 ID 重复登记时覆盖旧条目。
func (t *Tracker) BeginDependency(ctx context.Context, name, dependencyID string) *Item {
	item := &Item{
		Kind:      KindDependency,
		Name:      name,
		ID:        dependencyID,
		Timestamp: t.now(),
	}
	op, ok := xctx.Current(ctx)
	if !ok {
		op, ok = xctx.HolderFrom(ctx).Load()
	}
	if ok {
		item.ParentID = op.ID
	}
	if !Initialize(ctx, item) && dependencyID != "" {
		item.OperationID = xreqid.RootID(dependencyID)
	}
	t.pending.add(dependencyID, item, item.Timestamp)
	return item
}

// Pending 查看尚未结束的依赖条目
func (t *Tracker) Pending(dependencyID string) (*Item, bool) {
	return t.pending.peek(dependencyID)
}

// PendingLen 尚未结束的依赖数量（可能包含已过期但未清理的条目）
func (t *Tracker) PendingLen() int {
	return t.pending.len()
}

// EndDependency 结束依赖并输出。依赖不存在（已结束或已超时）时返回 false。
func (t *Tracker) EndDependency(ctx context.Context, dependencyID, resultCode string, success bool) (*Item, bool) {
	e, ok := t.pending.take(dependencyID)
	if !ok {
		return nil, false
	}
	item := e.item
	item.Duration = t.now().Sub(e.start)
	item.ResultCode = resultCode
	item.Success = success

	t.recorder.DependencyDuration(ctx, item.Duration, success)
	t.sink.Track(ctx, item)
	return item, true
}

// Close 丢弃所有待完成条目并释放后台资源，可重复调用
func (t *Tracker) Close() {
	t.pending.close()
}

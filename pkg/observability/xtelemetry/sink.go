package xtelemetry

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// Sink 遥测条目的去向，实现必须并发安全。
type Sink interface {
	Track(ctx context.Context, item *Item)
}

// SinkFunc 函数适配器
type SinkFunc func(ctx context.Context, item *Item)

// Track 调用 f
func (f SinkFunc) Track(ctx context.Context, item *Item) {
	f(ctx, item)
}

// LogSink 以结构化日志输出遥测条目
type LogSink struct {
	// Logger 为 nil 时使用 xlog 全局 Logger
	Logger xlog.Logger
}

// Track 写一条 Info 日志
func (s LogSink) Track(ctx context.Context, item *Item) {
	if item == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("kind", item.Kind.String()),
		slog.String("name", item.Name),
		slog.String("item_id", item.ID),
		slog.String("item_operation_id", item.OperationID),
		slog.String("item_parent_id", item.ParentID),
	}
	if item.Kind.IsOperation() {
		attrs = append(attrs,
			slog.String("result_code", item.ResultCode),
			slog.Bool("success", item.Success),
			xlog.Duration(item.Duration))
	}
	if item.Source != "" {
		attrs = append(attrs, slog.String("source", item.Source))
	}
	if item.Target != "" {
		attrs = append(attrs, slog.String("target", item.Target))
	}
	if item.Type != "" {
		attrs = append(attrs, slog.String("type", item.Type))
	}
	if item.Baggage.Len() > 0 {
		attrs = append(attrs, slog.String("baggage", item.Baggage.String()))
	}

	if s.Logger != nil {
		s.Logger.Info(ctx, "telemetry", attrs...)
		return
	}
	xlog.Info(ctx, "telemetry", attrs...)
}

// MemorySink 在内存中保存所有条目，用于测试与调试
type MemorySink struct {
	mu    sync.Mutex
	items []*Item
}

// Track 追加条目
func (s *MemorySink) Track(_ context.Context, item *Item) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
}

// Items 返回已收到条目的快照
func (s *MemorySink) Items() []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Reset 清空
func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

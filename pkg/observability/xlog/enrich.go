package xlog

import (
	"context"
	"log/slog"

	"github.com/omeyang/xcorr/pkg/context/xctx"
)

// EnrichHandler 从 context 读取当前操作的关联标识并附加到日志记录。
//
// 附加的字段：operation_id、parent_id、id。context 中没有活动 scope 时不附加。
// 在 WithGroup 之后，附加字段同样落在 group 内。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 按 slog 约定先 Clone record 再追加属性
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [3]slog.Attr
	if attrs := xctx.AppendOperationAttrs(buf[:0], ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}

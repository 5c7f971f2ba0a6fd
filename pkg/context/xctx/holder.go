package xctx

import (
	"context"
	"sync/atomic"

	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
)

// Holder 请求级的操作槽位。
//
// 请求入口把已建立的操作存入 Holder，Holder 本身随 context 传递但独立于 scope 链，
// scope 丢失后仍可从中取回最后已知的操作。并发安全。
type Holder struct {
	op atomic.Pointer[Operation]
}

// NewHolder 创建空 Holder
func NewHolder() *Holder {
	return &Holder{}
}

// Store 保存操作（覆盖旧值）
func (h *Holder) Store(op Operation) {
	if h == nil {
		return
	}
	op = op.clone()
	h.op.Store(&op)
}

// Load 读取保存的操作
func (h *Holder) Load() (Operation, bool) {
	if h == nil {
		return Operation{}, false
	}
	p := h.op.Load()
	if p == nil {
		return Operation{}, false
	}
	return p.clone(), true
}

// WithHolder 把 Holder 挂到 context 上。
func WithHolder(ctx context.Context, h *Holder) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, keyHolder, h), nil
}

// HolderFrom 读取 context 上的 Holder，没有时返回 nil。
func HolderFrom(ctx context.Context) *Holder {
	if ctx == nil {
		return nil
	}
	h, _ := ctx.Value(keyHolder).(*Holder)
	return h
}

// RestoreIfLost 在 scope 丢失时重建。
//
// ctx 上仍有活动 scope 时原样返回，restored 为 nil。
// 否则从 h（为 nil 时取 [HolderFrom]）读取最后已知的操作，
// 以其 ID 为父建立新的子 scope：ID 为请求类型子 ID，OperationID 与 Baggage 沿用。
// 原 scope 不会被复用。Holder 中也没有操作时同样返回 nil。
func RestoreIfLost(ctx context.Context, h *Holder) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	if activeScope(ctx) != nil {
		return ctx, nil
	}
	if h == nil {
		h = HolderFrom(ctx)
	}
	last, ok := h.Load()
	if !ok || last.ID == "" {
		return ctx, nil
	}
	return Establish(ctx, Operation{
		OperationID: last.OperationID,
		ParentID:    last.ID,
		ID:          xreqid.GenerateRequestID(last.ID),
		Baggage:     last.Baggage,
		Source:      SourceRestored,
	})
}

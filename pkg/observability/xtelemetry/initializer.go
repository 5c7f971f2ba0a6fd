package xtelemetry

import (
	"context"

	"github.com/omeyang/xcorr/pkg/context/xctx"
)

// Initialize 用 ctx 中的当前操作补全 item，返回是否做了补全。
//
//   - item.OperationID 已设置时不做任何修改
//   - 操作类条目（请求、依赖）：空的 ID / ParentID 取 scope 的 ID / ParentID
//   - 其他条目：空的 ParentID 取 scope 的 ID
//   - Baggage 先写入者优先合并
//
// 没有活动 scope 时退回 ctx 上 Holder 保存的请求操作。
func Initialize(ctx context.Context, item *Item) bool {
	if item == nil || item.OperationID != "" {
		return false
	}
	op, ok := xctx.Current(ctx)
	if !ok {
		if op, ok = xctx.HolderFrom(ctx).Load(); !ok {
			return false
		}
	}

	item.OperationID = op.OperationID
	if item.Kind.IsOperation() {
		if item.ID == "" {
			item.ID = op.ID
		}
		if item.ParentID == "" {
			item.ParentID = op.ParentID
		}
	} else if item.ParentID == "" {
		item.ParentID = op.ID
	}
	item.Baggage.Merge(op.Baggage)
	return true
}

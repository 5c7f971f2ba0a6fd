package xctx

import (
	"context"
	"log/slog"
)

// 日志属性 Key
const (
	KeyOperationID = "operation_id"
	KeyParentID    = "parent_id"
	KeyID          = "id"

	operationFieldCount = 3
)

// AppendOperationAttrs 将当前操作的三元组追加到 attrs，只追加非空字段。
func AppendOperationAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	s := activeScope(ctx)
	if s == nil {
		return attrs
	}
	if s.op.OperationID != "" {
		attrs = append(attrs, slog.String(KeyOperationID, s.op.OperationID))
	}
	if s.op.ParentID != "" {
		attrs = append(attrs, slog.String(KeyParentID, s.op.ParentID))
	}
	if s.op.ID != "" {
		attrs = append(attrs, slog.String(KeyID, s.op.ID))
	}
	return attrs
}

// OperationAttrs 返回当前操作的日志属性，没有活动 scope 时返回 nil。
//
// 每次调用分配新切片，热路径建议使用 AppendOperationAttrs。
func OperationAttrs(ctx context.Context) []slog.Attr {
	attrs := AppendOperationAttrs(make([]slog.Attr, 0, operationFieldCount), ctx)
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

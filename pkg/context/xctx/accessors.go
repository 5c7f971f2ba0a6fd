package xctx

import (
	"context"

	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
)

// OperationID 返回当前根操作 ID，不存在返回空字符串
func OperationID(ctx context.Context) string {
	if s := activeScope(ctx); s != nil {
		return s.op.OperationID
	}
	return ""
}

// ParentID 返回当前操作的父 ID，不存在返回空字符串
func ParentID(ctx context.Context) string {
	if s := activeScope(ctx); s != nil {
		return s.op.ParentID
	}
	return ""
}

// ID 返回当前操作自身的 ID，不存在返回空字符串
func ID(ctx context.Context) string {
	if s := activeScope(ctx); s != nil {
		return s.op.ID
	}
	return ""
}

// GetBaggage 返回当前关联上下文的副本
func GetBaggage(ctx context.Context) xbaggage.Baggage {
	if s := activeScope(ctx); s != nil {
		return s.op.Baggage.Clone()
	}
	return xbaggage.Baggage{}
}

// RequireOperation 返回当前操作，不存在则返回错误。
//
// ctx 为 nil 时返回 ErrNilContext，没有活动 scope 时返回 ErrNoOperation。
func RequireOperation(ctx context.Context) (Operation, error) {
	if ctx == nil {
		return Operation{}, ErrNilContext
	}
	op, ok := Current(ctx)
	if !ok {
		return Operation{}, ErrNoOperation
	}
	return op, nil
}

package xctx

import (
	"context"
	"sync/atomic"

	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
)

// Scope 一个操作在 context 中的作用域。
//
// 创建后除 ended 标记外不可变，可在 goroutine 之间共享。
type Scope struct {
	op     Operation
	parent *Scope
	ended  atomic.Bool
}

// Operation 返回该 scope 的三元组副本。
func (s *Scope) Operation() Operation {
	if s == nil {
		return Operation{}
	}
	return s.op.clone()
}

// Parent 返回外层 scope，没有时返回 nil。
func (s *Scope) Parent() *Scope {
	if s == nil {
		return nil
	}
	return s.parent
}

// End 结束 scope。幂等，nil 接收者安全。
//
// 结束后，在任何持有该 scope 的 context 上 [Current] 都会跳过它，
// 返回最近的未结束外层 scope。
func (s *Scope) End() {
	if s != nil {
		s.ended.Store(true)
	}
}

// Ended 判断 scope 是否已结束。
func (s *Scope) Ended() bool {
	return s == nil || s.ended.Load()
}

// scopeFrom 返回 ctx 上最内层的 scope 节点（可能已结束）。
func scopeFrom(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(keyScope).(*Scope)
	return s
}

// activeScope 沿 parent 链找到第一个未结束的 scope。
func activeScope(ctx context.Context) *Scope {
	for s := scopeFrom(ctx); s != nil; s = s.parent {
		if !s.ended.Load() {
			return s
		}
	}
	return nil
}

// Establish 开启新的 scope 并返回携带它的 context。
//
// 字段缺省规则：
//   - ParentID 为空且存在外层活动 scope 时，取外层的 ID；显式给出的 ParentID 总是优先
//   - ID 为空时，由 ParentID 派生请求类型子 ID；ParentID 也为空则生成新的层级 ID
//   - OperationID 为空时，取外层的 OperationID，没有外层则取 RootID(ID)
//   - Baggage 为空时，继承外层 Baggage 的副本
//
// ctx 为 nil 时以 context.Background() 为基础。
func Establish(ctx context.Context, op Operation) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := activeScope(ctx)

	if parent != nil {
		if op.ParentID == "" {
			op.ParentID = parent.op.ID
		}
		if op.OperationID == "" {
			op.OperationID = parent.op.OperationID
		}
		if op.Baggage.Len() == 0 {
			op.Baggage = parent.op.Baggage
		}
	}
	if op.ID == "" {
		op.ID = xreqid.GenerateChildID(op.ParentID, xreqid.KindRequest)
	}
	if op.OperationID == "" {
		op.OperationID = xreqid.RootID(op.ID)
	}

	s := &Scope{op: op.clone(), parent: scopeFrom(ctx)}
	return context.WithValue(ctx, keyScope, s), s
}

// StartChild 基于当前 scope 的 ID 派生子 scope。
//
// 子 ID 由 [xreqid.GenerateChildID] 按 kind 生成，OperationID 与 Baggage 继承自当前 scope，
// 当前 scope 本身不被修改。两个并发分支各调用一次，得到互相独立的 scope。
// 没有当前 scope 时，子 scope 成为新的根操作。
func StartChild(ctx context.Context, kind xreqid.Kind) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := activeScope(ctx)
	if parent == nil {
		id := xreqid.GenerateNewHierarchicalID()
		return Establish(ctx, Operation{
			OperationID: xreqid.RootID(id),
			ID:          id,
			Source:      SourceChild,
		})
	}
	return Establish(ctx, Operation{
		OperationID: parent.op.OperationID,
		ParentID:    parent.op.ID,
		ID:          xreqid.GenerateChildID(parent.op.ID, kind),
		Source:      SourceChild,
	})
}

// Current 返回最内层活动 scope 的三元组。
//
// 不在任何 scope 内，或所有 scope 都已结束时返回 false。
func Current(ctx context.Context) (Operation, bool) {
	s := activeScope(ctx)
	if s == nil {
		return Operation{}, false
	}
	return s.op.clone(), true
}

// CurrentScope 返回最内层活动 scope，没有时返回 nil。
func CurrentScope(ctx context.Context) *Scope {
	return activeScope(ctx)
}

// Detach 返回不携带 scope 的 context。
//
// 取消信号、截止时间以及 [Holder] 均保留，只丢弃 scope 链，
// 等价于一次没有传递环境状态的异步跳转。
func Detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithValue(ctx, keyScope, (*Scope)(nil))
}

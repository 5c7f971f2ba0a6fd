package xctx_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
)

// Example_scopes 演示 scope 的嵌套与结束。
func Example_scopes() {
	ctx, req := xctx.Establish(context.Background(), xctx.Operation{
		OperationID: "guid1",
		ParentID:    "|guid1.1",
		ID:          "|guid1.1.0a0b0c0d_",
	})

	depCtx, dep := xctx.StartChild(ctx, xreqid.KindDependency)
	fmt.Println(xctx.ParentID(depCtx))
	fmt.Println(xctx.OperationID(depCtx))

	dep.End()
	fmt.Println(xctx.ID(depCtx))

	req.End()
	_, ok := xctx.Current(depCtx)
	fmt.Println(ok)
	// Output:
	// |guid1.1.0a0b0c0d_
	// guid1
	// |guid1.1.0a0b0c0d_
	// false
}

// Example_restore 演示 scope 丢失后的恢复。
func Example_restore() {
	h := xctx.NewHolder()
	ctx, _ := xctx.WithHolder(context.Background(), h)
	ctx, req := xctx.Establish(ctx, xctx.Operation{OperationID: "r", ID: "|r.a_"})
	defer req.End()
	op, _ := xctx.Current(ctx)
	h.Store(op)

	lost := xctx.Detach(ctx)
	restoredCtx, restored := xctx.RestoreIfLost(lost, nil)
	defer restored.End()

	fmt.Println(xctx.ParentID(restoredCtx))
	fmt.Println(xreqid.Depth(xctx.ID(restoredCtx)))
	// Output:
	// |r.a_
	// 2
}

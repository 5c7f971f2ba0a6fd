package xctx_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xbaggage"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
)

func TestHolder_StoreLoad(t *testing.T) {
	h := xctx.NewHolder()
	_, ok := h.Load()
	assert.False(t, ok)

	h.Store(xctx.Operation{ID: "|r.", OperationID: "r"})
	op, ok := h.Load()
	require.True(t, ok)
	assert.Equal(t, "|r.", op.ID)

	var nilHolder *xctx.Holder
	nilHolder.Store(op)
	_, ok = nilHolder.Load()
	assert.False(t, ok)
}

func TestWithHolder(t *testing.T) {
	_, err := xctx.WithHolder(nil, xctx.NewHolder()) //nolint:staticcheck // 验证 nil ctx
	assert.ErrorIs(t, err, xctx.ErrNilContext)

	h := xctx.NewHolder()
	ctx, err := xctx.WithHolder(context.Background(), h)
	require.NoError(t, err)
	assert.Same(t, h, xctx.HolderFrom(ctx))
	assert.Nil(t, xctx.HolderFrom(context.Background()))
}

func TestRestoreIfLost_NotLost(t *testing.T) {
	ctx, scope := xctx.Establish(context.Background(), xctx.Operation{ID: "|r."})
	defer scope.End()

	got, restored := xctx.RestoreIfLost(ctx, nil)
	assert.Nil(t, restored)
	assert.Equal(t, ctx, got)
}

func TestRestoreIfLost_NoHolder(t *testing.T) {
	got, restored := xctx.RestoreIfLost(context.Background(), nil)
	assert.Nil(t, restored)
	_, ok := xctx.Current(got)
	assert.False(t, ok)
}

func TestRestoreIfLost_CreatesChildScope(t *testing.T) {
	h := xctx.NewHolder()
	base, err := xctx.WithHolder(context.Background(), h)
	require.NoError(t, err)

	bag := xbaggage.New(xbaggage.Entry{Key: "k", Value: "v"})
	ctx, scope := xctx.Establish(base, xctx.Operation{
		OperationID: "guid1",
		ParentID:    "|guid1.1",
		ID:          "|guid1.1.0000abcd_",
		Baggage:     bag,
	})
	defer scope.End()
	op, _ := xctx.Current(ctx)
	h.Store(op)

	lost := xctx.Detach(ctx)
	restoredCtx, restored := xctx.RestoreIfLost(lost, nil)
	require.NotNil(t, restored)
	defer restored.End()

	got, ok := xctx.Current(restoredCtx)
	require.True(t, ok)
	assert.Equal(t, "guid1", got.OperationID)
	assert.Equal(t, "|guid1.1.0000abcd_", got.ParentID)
	assert.NotEqual(t, op.ID, got.ID)
	assert.True(t, strings.HasPrefix(got.ID, op.ID))
	assert.Equal(t, xreqid.Depth(op.ID)+1, xreqid.Depth(got.ID))
	assert.Equal(t, xctx.SourceRestored, got.Source)
	v, _ := got.Baggage.Get("k")
	assert.Equal(t, "v", v)

	// 原 scope 未被复用
	assert.NotSame(t, scope, restored)
}

func TestRestoreIfLost_ExplicitHolder(t *testing.T) {
	h := xctx.NewHolder()
	h.Store(xctx.Operation{OperationID: "r", ID: "|r.a_"})

	ctx, restored := xctx.RestoreIfLost(context.Background(), h)
	require.NotNil(t, restored)
	assert.Equal(t, "|r.a_", xctx.ParentID(ctx))
}

package xtrace_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xcorr/pkg/context/xctx"
	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

// makeHeader 创建 HTTP Header
func makeHeader(kvs ...string) propagation.HeaderCarrier {
	h := make(http.Header)
	for i := 0; i < len(kvs)-1; i += 2 {
		h.Add(kvs[i], kvs[i+1])
	}
	return propagation.HeaderCarrier(h)
}

func TestResolve_HierarchicalRequestID(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(),
		makeHeader(xtrace.HeaderRequestID, "|guid1.1"))

	assert.Equal(t, "guid1", op.OperationID)
	assert.Equal(t, "|guid1.1", op.ParentID)
	assert.True(t, strings.HasPrefix(op.ID, "|guid1.1."))
	assert.NotEqual(t, "|guid1.1", op.ID)
	assert.True(t, strings.HasSuffix(op.ID, "_"))
	assert.Equal(t, xctx.SourceStandard, op.Source)
}

func TestResolve_OpaqueRequestID(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(),
		makeHeader(xtrace.HeaderRequestID, "guid1"))

	assert.Equal(t, "guid1", op.OperationID)
	assert.Equal(t, "guid1", op.ParentID)
	assert.True(t, strings.HasPrefix(op.ID, "|guid1."))
}

func TestResolve_OpaqueRequestIDWithContextID(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), makeHeader(
		xtrace.HeaderRequestID, "guid1",
		xtrace.HeaderCorrelationContext, "Id=guid2",
	))

	assert.Equal(t, "guid2", op.OperationID)
	assert.Equal(t, "guid1", op.ParentID)
	assert.True(t, strings.HasPrefix(op.ID, "|guid2."))
	v, ok := op.Baggage.Get("Id")
	require.True(t, ok)
	assert.Equal(t, "guid2", v)
}

func TestResolve_HierarchicalIgnoresContextID(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), makeHeader(
		xtrace.HeaderRequestID, "|guid1.1",
		xtrace.HeaderCorrelationContext, "Id=guid2",
	))

	assert.Equal(t, "guid1", op.OperationID)
	assert.True(t, strings.HasPrefix(op.ID, "|guid1.1."))
}

func TestResolve_NoHeaders(t *testing.T) {
	for _, carrier := range []propagation.TextMapCarrier{makeHeader(), nil} {
		op := xtrace.NewResolver().Resolve(context.Background(), carrier)

		assert.Empty(t, op.ParentID)
		assert.NotEmpty(t, op.OperationID)
		assert.True(t, strings.HasPrefix(op.ID, "|"+op.OperationID+"."))
		assert.Equal(t, xctx.SourceFresh, op.Source)
	}
}

func TestResolve_EmptyRequestIDIsAbsent(t *testing.T) {
	r := xtrace.NewResolver(xtrace.WithCustomHeaders("x-root", "x-parent"))
	op := r.Resolve(context.Background(), makeHeader(
		xtrace.HeaderRequestID, "   ",
		"x-root", "legacy-root",
	))

	assert.Equal(t, xctx.SourceCustom, op.Source)
	assert.Equal(t, "legacy-root", op.OperationID)
}

func TestResolve_CorrelationContextFilter(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), makeHeader(
		xtrace.HeaderRequestID, "|r.",
		xtrace.HeaderCorrelationContext, "k1=v1, "+strings.Repeat("k", 17)+"=v",
		xtrace.HeaderCorrelationContext, "k2="+strings.Repeat("v", 41)+", k3="+strings.Repeat("v", 42),
	))

	assert.Equal(t, []string{"k1", "k2"}, op.Baggage.Keys())
}

func TestResolve_CustomHeaders(t *testing.T) {
	r := xtrace.NewResolver(xtrace.WithCustomHeaders(xtrace.LegacyRootHeader, xtrace.LegacyParentHeader))

	t.Run("root and parent", func(t *testing.T) {
		op := r.Resolve(context.Background(), makeHeader(
			xtrace.LegacyRootHeader, "guid2",
			xtrace.LegacyParentHeader, "guid1",
		))
		assert.Equal(t, "guid2", op.OperationID)
		assert.Equal(t, "guid1", op.ParentID)
		assert.True(t, strings.HasPrefix(op.ID, "|guid2."))
	})

	t.Run("parent only", func(t *testing.T) {
		op := r.Resolve(context.Background(), makeHeader(xtrace.LegacyParentHeader, "guid1"))
		assert.Equal(t, "guid1", op.OperationID)
		assert.Equal(t, "guid1", op.ParentID)
		assert.True(t, strings.HasPrefix(op.ID, "|guid1."))
	})

	t.Run("root only", func(t *testing.T) {
		op := r.Resolve(context.Background(), makeHeader(xtrace.LegacyRootHeader, "guid2"))
		assert.Equal(t, "guid2", op.OperationID)
		assert.Empty(t, op.ParentID)
	})
}

func TestResolve_CustomHeadersIgnoredWhenUnconfigured(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), makeHeader(
		xtrace.LegacyRootHeader, "guid2",
		xtrace.LegacyParentHeader, "guid1",
	))
	assert.Equal(t, xctx.SourceFresh, op.Source)
	assert.Empty(t, op.ParentID)
}

func TestResolve_StandardWinsOverCustom(t *testing.T) {
	r := xtrace.NewResolver(xtrace.WithCustomHeaders(xtrace.LegacyRootHeader, xtrace.LegacyParentHeader))
	for range 100 {
		op := r.Resolve(context.Background(), makeHeader(
			xtrace.HeaderRequestID, "|std.1_",
			xtrace.LegacyRootHeader, "legacy-root",
			xtrace.LegacyParentHeader, "legacy-parent",
		))
		require.Equal(t, "std", op.OperationID)
		require.Equal(t, "|std.1_", op.ParentID)
		require.Equal(t, "std", xreqid.RootID(op.ID))
	}
}

func TestResolver_Update(t *testing.T) {
	r := xtrace.NewResolver()
	r.Update("x-root", "")

	root, parent := r.CustomHeaders()
	assert.Equal(t, "x-root", root)
	assert.Empty(t, parent)

	op := r.Resolve(context.Background(), makeHeader("x-root", "abc"))
	assert.Equal(t, "abc", op.OperationID)
}

// panicCarrier 模拟不兼容的头集合实现
type panicCarrier struct{}

func (panicCarrier) Get(string) string  { panic("boom") }
func (panicCarrier) Set(string, string) { panic("boom") }
func (panicCarrier) Keys() []string     { return nil }

func TestResolve_CarrierPanicFallsBack(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), panicCarrier{})
	assert.Equal(t, xctx.SourceFresh, op.Source)
	assert.True(t, xreqid.IsHierarchical(op.ID))
}

func TestResolve_MetadataCarrier(t *testing.T) {
	md := xtrace.MetadataCarrier{}
	md.Set("request-id", "|m.")
	op := xtrace.NewResolver().Resolve(context.Background(), md)
	assert.Equal(t, "m", op.OperationID)
}

func TestResolve_MapCarrierCaseInsensitive(t *testing.T) {
	op := xtrace.NewResolver().Resolve(context.Background(), propagation.MapCarrier{
		"request-id":          "|guid1.1",
		"correlation-context": "k1=v1",
	})
	assert.Equal(t, "guid1", op.OperationID)
	assert.Equal(t, "|guid1.1", op.ParentID)
	assert.True(t, strings.HasPrefix(op.ID, "|guid1.1."))
	assert.Equal(t, xctx.SourceStandard, op.Source)
	v, ok := op.Baggage.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	r := xtrace.NewResolver(xtrace.WithCustomHeaders(xtrace.LegacyRootHeader, xtrace.LegacyParentHeader))
	op = r.Resolve(context.Background(), propagation.MapCarrier{
		"X-Ms-Request-Root-Id": "guid2",
		"X-MS-REQUEST-ID":      "guid1",
	})
	assert.Equal(t, "guid2", op.OperationID)
	assert.Equal(t, "guid1", op.ParentID)
	assert.Equal(t, xctx.SourceCustom, op.Source)
}

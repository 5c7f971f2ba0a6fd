package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xcorr/pkg/correlation/xreqid"
)

// runApp 以 args 运行一个新的应用实例，返回标准输出
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := createApp()
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run(context.Background(), append([]string{"xcorrctl"}, args...))
	return buf.String(), err
}

// field 取 "key: value" 行的值
func field(t *testing.T, out, key string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, key+": "); ok {
			return v
		}
	}
	t.Fatalf("missing %q in output:\n%s", key, out)
	return ""
}

func TestCreateCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range createCommands() {
		names[cmd.Name] = true
	}
	for _, name := range []string{"root", "child", "parse", "resolve", "inject"} {
		assert.True(t, names[name], name)
	}
}

func TestRootCommand(t *testing.T) {
	out, err := runApp(t, "root")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, xreqid.IsHierarchical(id))
	assert.True(t, strings.HasSuffix(id, "."))
}

func TestChildCommand(t *testing.T) {
	out, err := runApp(t, "child", "|guid.")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(id, "|guid."))
	assert.True(t, strings.HasSuffix(id, "_"))

	out, err = runApp(t, "child", "--dependency", "|guid.1_")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "."))

	_, err = runApp(t, "child")
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestParseCommand(t *testing.T) {
	out, err := runApp(t, "parse", "|guid.1_2.")
	require.NoError(t, err)
	assert.Equal(t, "true", field(t, out, "hierarchical"))
	assert.Equal(t, "guid", field(t, out, "root"))
	assert.Equal(t, "2", field(t, out, "depth"))
	assert.Equal(t, "false", field(t, out, "overflowed"))

	out, err = runApp(t, "parse", "opaque")
	require.NoError(t, err)
	assert.Equal(t, "false", field(t, out, "hierarchical"))
	assert.Equal(t, "opaque", field(t, out, "root"))

	_, err = runApp(t, "parse")
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestResolveCommand(t *testing.T) {
	out, err := runApp(t, "resolve",
		"-H", "Request-Id: |guid1.1_",
		"-H", "Correlation-Context: user=alice")
	require.NoError(t, err)
	assert.Equal(t, "standard", field(t, out, "source"))
	assert.Equal(t, "guid1", field(t, out, "operation_id"))
	assert.Equal(t, "|guid1.1_", field(t, out, "parent_id"))
	assert.True(t, strings.HasPrefix(field(t, out, "id"), "|guid1.1_"))
	assert.Equal(t, "user=alice", field(t, out, "correlation_context"))
}

func TestResolveCommand_Fresh(t *testing.T) {
	out, err := runApp(t, "resolve")
	require.NoError(t, err)
	assert.Equal(t, "fresh", field(t, out, "source"))
	assert.Empty(t, field(t, out, "parent_id"))
}

func TestResolveCommand_CustomHeadersFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xcorr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("correlation:\n  root_header: x-root\n"), 0o600))

	out, err := runApp(t, "--config", path, "resolve", "-H", "x-root: legacy")
	require.NoError(t, err)
	assert.Equal(t, "custom", field(t, out, "source"))
	assert.Equal(t, "legacy", field(t, out, "operation_id"))

	// 未配置时忽略自定义头
	out, err = runApp(t, "resolve", "-H", "x-root: legacy")
	require.NoError(t, err)
	assert.Equal(t, "fresh", field(t, out, "source"))
}

func TestResolveCommand_Errors(t *testing.T) {
	_, err := runApp(t, "resolve", "-H", "no-colon")
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))

	_, err = runApp(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "resolve")
	require.Error(t, err)
	assert.False(t, errors.As(err, &usageErr))
}

func TestInjectCommand(t *testing.T) {
	out, err := runApp(t, "inject", "--id", "|guid1.1_", "--baggage", "tenant=t1")
	require.NoError(t, err)
	id := field(t, out, "Request-Id")
	assert.True(t, strings.HasPrefix(id, "|guid1.1_"))
	assert.True(t, strings.HasSuffix(id, "."))
	assert.Equal(t, "tenant=t1", field(t, out, "Correlation-Context"))
}

func TestInjectCommand_LegacyAndAppID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xcorr.yaml")
	cfg := `correlation:
  root_header: x-root
  parent_header: x-parent
  inject_legacy_headers: true
  instrumentation_key: ikey
  app_id: app-1
`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	out, err := runApp(t, "-c", path, "inject", "--id", "|guid1.1_", "--operation", "op-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", field(t, out, "X-Root"))
	assert.Equal(t, "|guid1.1_", field(t, out, "X-Parent"))
	assert.Equal(t, "appId=cid-v1:app-1", field(t, out, "Request-Context"))
}

func TestInjectCommand_NoContext(t *testing.T) {
	out, err := runApp(t, "inject")
	require.NoError(t, err)
	assert.True(t, xreqid.IsHierarchical(field(t, out, "Request-Id")))
	assert.NotContains(t, out, "Correlation-Context")
}

func TestParseBaggage(t *testing.T) {
	b, err := parseBaggage([]string{"a=1", " b = 2 "})
	require.NoError(t, err)
	assert.Equal(t, "a=1, b=2", b.String())

	for _, bad := range []string{"novalue", "=v", "k=", strings.Repeat("k", 17) + "=v"} {
		_, err := parseBaggage([]string{bad})
		var usageErr *usageError
		assert.True(t, errors.As(err, &usageErr), bad)
	}
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"A: 1", "a: 2", "B:"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, h.Values("A"))
	assert.Equal(t, []string{""}, h.Values("B"))

	_, err = parseHeaders([]string{": v"})
	assert.Error(t, err)
}

func TestUsageError(t *testing.T) {
	err := usagef("bad %d", 1)
	assert.Equal(t, "bad 1", err.Error())
	assert.True(t, isCLIUsageError(errors.New("flag provided but not defined: -x")))
	assert.False(t, isCLIUsageError(errors.New("boom")))
}

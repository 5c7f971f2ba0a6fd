package xconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", "a:\n  b: 1\n")

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, cfg.Format())
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, 1, cfg.Client().Int("a.b"))
}

func TestNew_Errors(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = New("config.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = New(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrLoadFailed)

	bad := writeFile(t, t.TempDir(), "bad.json", "{")
	_, err = New(bad)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"x": "y"}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "y", cfg.Client().String("x"))
	assert.ErrorIs(t, cfg.Reload(), ErrNotReloadable)

	empty, err := NewFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())

	_, err = NewFromBytes(nil, "ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReload_KeepsOldOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{"v": 1}`)
	cfg, err := New(path)
	require.NoError(t, err)

	writeFile(t, dir, "app.json", `{"v": 2}`)
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 2, cfg.Client().Int("v"))

	writeFile(t, dir, "app.json", `{`)
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 2, cfg.Client().Int("v"))
}

func TestUnmarshal(t *testing.T) {
	cfg, err := NewFromBytes([]byte("s:\n  name: n\n"), FormatYAML)
	require.NoError(t, err)

	var out struct {
		Name string `koanf:"name"`
	}
	require.NoError(t, cfg.Unmarshal("s", &out))
	assert.Equal(t, "n", out.Name)

	var bad int
	assert.ErrorIs(t, cfg.Unmarshal("s", &bad), ErrUnmarshalFailed)
}

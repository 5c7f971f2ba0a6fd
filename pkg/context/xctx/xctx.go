package xctx

import "errors"

// contextKey 包私有类型，避免与其他包的 context key 冲突。
type contextKey string

const (
	keyScope  = contextKey("xctx:scope")
	keyHolder = contextKey("xctx:holder")
)

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrNoOperation context 中没有活动的 scope
	ErrNoOperation = errors.New("xctx: no active operation")
)

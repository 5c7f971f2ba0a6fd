package xmetrics

import (
	"context"
	"time"
)

// Direction 头的读写方向
type Direction string

const (
	// DirectionInbound 读取入站头
	DirectionInbound Direction = "in"
	// DirectionOutbound 写入出站头
	DirectionOutbound Direction = "out"
)

//go:generate mockgen -source=recorder.go -destination=xmetricsmock/recorder.go -package=xmetricsmock

// Recorder 关联引擎的指标记录接口，实现必须并发安全。
type Recorder interface {
	// ResolveTotal 记录一次入站解析及其来源
	ResolveTotal(ctx context.Context, source string)
	// BaggageDropped 记录被丢弃的关联上下文条目数
	BaggageDropped(ctx context.Context, n int)
	// ScopeRestored 记录一次 scope 重建
	ScopeRestored(ctx context.Context)
	// HeaderFailure 记录一次头读写失败
	HeaderFailure(ctx context.Context, dir Direction)
	// DependencyDuration 记录一次出站依赖调用的耗时
	DependencyDuration(ctx context.Context, d time.Duration, success bool)
}

// NoopRecorder 丢弃所有指标
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) ResolveTotal(context.Context, string)                    {}
func (NoopRecorder) BaggageDropped(context.Context, int)                     {}
func (NoopRecorder) ScopeRestored(context.Context)                           {}
func (NoopRecorder) HeaderFailure(context.Context, Direction)                {}
func (NoopRecorder) DependencyDuration(context.Context, time.Duration, bool) {}

// OrNoop r 为 nil 时返回 NoopRecorder
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

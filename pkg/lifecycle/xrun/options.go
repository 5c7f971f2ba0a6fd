package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
)

// Option 配置 Group
type Option func(*options)

type options struct {
	name    string
	logger  xlog.Logger
	signals []os.Signal
	// sigSource 非 nil 时替代 signal.Notify，测试中注入信号
	sigSource <-chan os.Signal
}

func defaultOptions() *options {
	return &options{
		name:    "xrun",
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WithName 设置日志中的组名
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置生命周期日志的输出，默认使用 xlog 全局 Logger
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSignals 设置 Run 监听的信号。传入空列表时不监听信号。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
	}
}

func withSignalSource(ch <-chan os.Signal) Option {
	return func(o *options) {
		o.sigSource = ch
	}
}

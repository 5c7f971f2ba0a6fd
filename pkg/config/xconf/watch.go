package xconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xcorr/pkg/observability/xlog"
	"github.com/omeyang/xcorr/pkg/observability/xtrace"
)

const defaultDebounce = 100 * time.Millisecond

// WatchCallback 文件变更后的回调，err 为重载结果
type WatchCallback func(cfg *Config, err error)

// WatchOption 监视器选项
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher 配置文件监视器
type Watcher struct {
	cfg      *Config
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	timer   *time.Timer
	// cbMu 保证 Stop 返回后没有正在执行的回调
	cbMu sync.Mutex
}

// Watch 创建监视器，调用 Start 后开始工作，用完调用 Stop。
//
// 监视的是文件所在目录，编辑器先删后建或写临时文件再 rename 都能感知。
func Watch(cfg *Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if cfg == nil || cfg.path == "" {
		return nil, ErrNotReloadable
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(cfg.path)
	if err := fs.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("xconf: watch directory %s: %w", dir, err), fs.Close())
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:      cfg,
		fs:       fs,
		callback: callback,
		debounce: defaultDebounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Start 在后台 goroutine 中开始监视，重复调用无效
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

// Stop 停止监视并等待后台 goroutine 退出，可重复调用。
//
// 不能在回调中调用。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	started := w.started
	w.mu.Unlock()

	w.cancel()
	err := w.fs.Close()
	if started {
		<-w.done
	}
	// 等待可能已经开始的回调结束
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	name := filepath.Base(w.cfg.path)

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && isChange(ev) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("xconf: watch error: %w", err))
		}
	}
}

// isChange Write 为原地修改，Create/Rename 对应编辑器的原子写入
func isChange(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// schedule 重置防抖定时器
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.notify(w.cfg.Reload())
	})
}

func (w *Watcher) notify(err error) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	if w.ctx.Err() != nil || w.callback == nil {
		return
	}
	w.callback(w.cfg, err)
}

// ApplyCorrelation 返回把重载后的关联配置应用到运行中组件的回调。
//
// 自定义头名称写入 resolver，出站旧式头名称写入 injector（inject_legacy_headers
// 关闭时清空）；logger 非 nil 时同步日志级别。nil 组件被跳过。
// 重载失败或新配置非法时保留旧配置并记录警告。
func ApplyCorrelation(path string, resolver *xtrace.Resolver, injector *xtrace.Injector, logger xlog.Leveler) WatchCallback {
	return func(cfg *Config, err error) {
		ctx := context.Background()
		if err != nil {
			xlog.Warn(ctx, "xconf: reload failed, keeping previous config", xlog.Err(err))
			return
		}
		c, err := LoadCorrelation(cfg, path)
		if err != nil {
			xlog.Warn(ctx, "xconf: invalid correlation config, keeping previous", xlog.Err(err))
			return
		}
		if resolver != nil {
			resolver.Update(c.RootHeader, c.ParentHeader)
		}
		if injector != nil {
			injector.Update(c.LegacyHeaders())
		}
		if logger != nil {
			// Validate 已校验
			level, _ := xlog.ParseLevel(c.Log.Level)
			logger.SetLevel(level)
		}
		xlog.Info(ctx, "xconf: correlation config applied",
			slog.String("root_header", c.RootHeader),
			slog.String("parent_header", c.ParentHeader),
			slog.Bool("inject_legacy_headers", c.InjectLegacyHeaders))
	}
}

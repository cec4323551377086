package http

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"vwlab/logging"
)

const defaultWatchDebounce = 500 * time.Millisecond

// ModelWatcher 监听模型文件, 文件变化后(防抖)调用 reload
type ModelWatcher struct {
	path     string
	reload   func(context.Context) error
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	timer    *time.Timer
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewModelWatcher 创建模型文件监听器
func NewModelWatcher(path string, reload func(context.Context) error, debounce time.Duration, logger *zap.Logger) (*ModelWatcher, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("model path required")
	}
	if reload == nil {
		return nil, errors.New("reload func required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	logger = logging.OrNop(logger)
	return &ModelWatcher{
		path:     filepath.Clean(path),
		reload:   reload,
		debounce: debounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start 开始监听模型所在目录; ctx 结束时自动停止
func (w *ModelWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// vw replaces the model file on exit, so the directory is watched rather than the file.
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		_ = fsWatcher.Close()
		return err
	}
	w.watcher = fsWatcher
	w.ctx = ctx

	go w.watchLoop(fsWatcher)
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.stopCh:
		}
	}()
	return nil
}

// Stop 停止监听
func (w *ModelWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}

func (w *ModelWatcher) watchLoop(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (w *ModelWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Clean(event.Name) != w.path {
		return
	}
	w.scheduleReload()
}

func (w *ModelWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.logger.Info("model file changed, reloading", zap.String("path", w.path))
		if err := w.reload(w.ctx); err != nil {
			w.logger.Error("model reload failed", zap.String("path", w.path), zap.Error(err))
		}
	})
}

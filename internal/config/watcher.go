package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file when it changes on disk and hands the new
// Config to a callback. Used to hot-swap keyword lists and intervals without
// restarting a session.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onChange func(Config)
	logger   *zap.Logger

	debounce time.Duration
	lastLoad time.Time
	running  bool
	doneCh   chan struct{}
}

// NewWatcher creates a watcher for the given config path. onChange is invoked
// from the watcher goroutine with the freshly loaded config.
func NewWatcher(path string, onChange func(Config), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		path:     path,
		onChange: onChange,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop exits when ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			if time.Since(w.lastLoad) < w.debounce {
				w.mu.Unlock()
				continue
			}
			w.lastLoad = time.Now()
			w.mu.Unlock()

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", w.path))
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Stop closes the underlying watcher and waits briefly for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	_ = w.watcher.Close()
	if running {
		select {
		case <-w.doneCh:
		case <-time.After(2 * time.Second):
			w.logger.Warn("config watcher did not stop in time")
		}
	}
}

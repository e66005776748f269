package forms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a registry from a directory whenever a definition file
// changes. A reload that fails to parse or lint keeps the previous set.
type Watcher struct {
	registry *Registry
	dir      string
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger attaches a logger.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnReload registers a callback invoked after every reload attempt.
func OnReload(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher binds a registry to a definitions directory.
func NewWatcher(registry *Registry, dir string, opts ...WatchOption) *Watcher {
	w := &Watcher{
		registry: registry,
		dir:      dir,
		debounce: 250 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run blocks until ctx is cancelled, reloading on changes.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("forms: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("forms: watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching form definitions", zap.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDefinitionFile(event.Name) || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("definition changed", zap.String("file", filepath.Base(event.Name)), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("definition watcher error", zap.Error(err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	err := w.registry.ReloadFS(os.DirFS(w.dir))
	if err != nil {
		w.logger.Error("form definitions reload failed; keeping previous set", zap.Error(err))
	} else {
		w.logger.Info("form definitions reloaded", zap.Int("forms", w.registry.Len()))
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

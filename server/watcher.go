package server

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 2 * time.Second

// Watcher triggers a reindex when the source spreadsheet changes.
// Bursts of events within the debounce window collapse into one rebuild.
type Watcher struct {
	pattern  string
	debounce time.Duration
	reindex  func(ctx context.Context)
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for pattern, a file path or doublestar glob.
// reindex runs on the watcher goroutine after each quiet period.
func NewWatcher(pattern string, debounce time.Duration, reindex func(ctx context.Context), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		pattern:  pattern,
		debounce: debounce,
		reindex:  reindex,
		logger:   logger,
	}
}

// watchDir is the directory holding the source. Watching the directory
// catches editors that replace the file by rename.
func (w *Watcher) watchDir() string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(w.pattern))
	if base == "" || base == "." {
		return "."
	}
	if !hasMeta(w.pattern) {
		return filepath.Dir(w.pattern)
	}
	return filepath.FromSlash(base)
}

// matches reports whether an event path refers to the source
func (w *Watcher) matches(path string) bool {
	if !hasMeta(w.pattern) {
		return filepath.Clean(path) == filepath.Clean(w.pattern)
	}
	ok, err := doublestar.PathMatch(filepath.Clean(w.pattern), filepath.Clean(path))
	return err == nil && ok
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dir := w.watchDir()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching source for changes", "dir", dir, "pattern", w.pattern)

	fire := make(chan struct{}, 1)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("source changed", "path", event.Name, "op", event.Op.String())
			w.schedule(fire)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-fire:
			w.logger.Info("source changed, rebuilding knowledge index")
			w.reindex(ctx)
		}
	}
}

// schedule (re)starts the debounce timer
func (w *Watcher) schedule(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func hasMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

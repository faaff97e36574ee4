package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ykanchan/pywebview-tw/internal/logging"
)

// DefaultDebounce is how long the watcher waits for successive events
// before acting on a change.
const DefaultDebounce = time.Second

// Watcher reports rewrites of one snapshot file. Writes whose modification
// time was announced through Known are not reported.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context, modTime time.Time)
	logger   logging.Logger

	mu    sync.Mutex
	known time.Time
}

func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context, modTime time.Time), l logging.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		logger:   l.With("module", "snapshot_watcher"),
	}
}

// Known records modTime as already accounted for.
func (w *Watcher) Known(modTime time.Time) {
	w.mu.Lock()
	w.known = modTime
	w.mu.Unlock()
}

// Run watches the snapshot's directory until ctx is done. Renames are
// watched too, since atomic writers replace the file.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(w.debounce)
			}
		case <-debounce:
			debounce = nil
			w.check(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watcher error", "error", err)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	fi, err := os.Stat(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		w.logger.Warn(ctx, "failed to stat snapshot", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	if fi.ModTime().Equal(w.known) {
		w.mu.Unlock()
		return
	}
	w.known = fi.ModTime()
	w.mu.Unlock()

	w.logger.Info(ctx, "snapshot changed on disk", "path", w.path, "mtime", fi.ModTime())
	w.onChange(ctx, fi.ModTime())
}

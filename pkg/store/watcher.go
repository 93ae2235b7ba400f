package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the store's cache when bundle files change on disk
// behind the process's back, e.g. an operator editing or restoring a
// firm's rules file. The store's own saves go through the cache and need
// no invalidation; a rename event for a fresh save merely drops an entry
// that Save just repopulated.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher creates a watcher over the store's directory. Call Run to
// start it.
func NewWatcher(s *Store, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	if err := fw.Add(s.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", s.Dir(), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:   s,
		watcher: fw,
		logger:  logger.With("component", "store_watcher"),
	}, nil
}

// Run processes events until the context is cancelled. It is intended to
// be run as a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, "_rules.json") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	firm := strings.TrimSuffix(name, "_rules.json")
	w.store.Invalidate(firm)
	w.logger.Debug("cache invalidated", "firm", firm, "op", event.Op.String())
}

// Package watcher reacts to changes in the documents directory and triggers
// incremental indexing of new files.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Indexer picks up files that are present on disk but absent from the index.
type Indexer interface {
	AutoIndexNew(ctx context.Context) (map[string]bool, error)
}

// Watcher combines inotify events with a periodic sweep. The sweep catches
// files that arrive through paths inotify misses, such as remote mounts.
type Watcher struct {
	dir      string
	indexer  Indexer
	logger   *zap.Logger
	interval time.Duration
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the periodic sweep interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithDebounce sets how long to wait after the last event before indexing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over dir.
func New(dir string, indexer Indexer, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		indexer:  indexer,
		logger:   logger,
		interval: 5 * time.Minute,
		debounce: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until the context is canceled. Event bursts are debounced so a
// file being written in several chunks indexes once.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching documents directory",
		zap.String("dir", w.dir),
		zap.Duration("sweep_interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Stopped timer used as the debounce trigger.
	pending := time.NewTimer(w.debounce)
	if !pending.Stop() {
		<-pending.C
	}
	defer pending.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				pending.Reset(w.debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-pending.C:
			w.sweep(ctx)
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}

func (w *Watcher) sweep(ctx context.Context) {
	results, err := w.indexer.AutoIndexNew(ctx)
	if err != nil {
		w.logger.Error("auto-index sweep failed", zap.Error(err))
		return
	}
	if len(results) == 0 {
		return
	}
	indexed := 0
	for _, ok := range results {
		if ok {
			indexed++
		}
	}
	w.logger.Info("auto-index sweep finished",
		zap.Int("new_files", len(results)),
		zap.Int("indexed", indexed),
	)
}

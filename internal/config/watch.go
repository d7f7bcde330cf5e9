package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce batches rapid editor write events together.
const defaultDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands
// the fresh Config to a callback. Editors that truncate-then-write or
// rename-into-place both surface as a single reload thanks to
// debouncing.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OnReload receives the freshly loaded config after each change.
type OnReload func(Config)

// NewWatcher creates a watcher for the given config file. If logger
// is nil, a default logger writing to stderr is used.
func NewWatcher(path string, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[config] ", log.LstdFlags)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		debounce: defaultDebounce,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Start begins watching. The parent directory is watched rather than
// the file itself so atomic-rename saves keep working.
func (w *Watcher) Start(ctx context.Context, onReload OnReload) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Printf("watching %s for changes", w.path)

	w.wg.Add(2)
	go w.watchEvents(ctx)
	go w.flushLoop(ctx, onReload)
	return nil
}

// Stop tears down the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Printf("error closing watcher: %v", err)
	}
	w.wg.Wait()
}

func (w *Watcher) watchEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			w.mu.Lock()
			now := time.Now()
			w.pending = &now
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		}
	}
}

// flushLoop reloads once a pending change has been quiet for the
// debounce interval.
func (w *Watcher) flushLoop(ctx context.Context, onReload OnReload) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			ready := w.pending != nil && time.Since(*w.pending) >= w.debounce
			if ready {
				w.pending = nil
			}
			w.mu.Unlock()
			if !ready {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Printf("WARNING: failed to reload config: %v", err)
				continue
			}
			w.logger.Println("config reloaded")
			onReload(cfg)
		}
	}
}

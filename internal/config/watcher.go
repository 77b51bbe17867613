package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tradevault/internal/logging"
)

// Watcher hot-reloads the config file so heuristics data (ticker exclusions,
// keyword classes) can be extended without a restart. Only the heuristics
// section is applied live; provider changes still require a restart.
type Watcher struct {
	path     string
	onReload func(HeuristicsConfig)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	mu         sync.Mutex
	lastReload time.Time
}

// NewWatcher creates a watcher for the given config path. onReload is invoked
// with the freshly parsed heuristics section after every successful reload.
func NewWatcher(path string, onReload func(HeuristicsConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save and
	// the inode-level watch would go stale.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		onReload: onReload,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Warn("watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	// Editors emit bursts of write events; debounce them.
	w.mu.Lock()
	if time.Since(w.lastReload) < 250*time.Millisecond {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("hot reload failed: %v", err)
		return
	}
	logging.Config("heuristics reloaded from %s (%d ticker exclusions)",
		w.path, len(cfg.Heuristics.TickerExclusions))
	if w.onReload != nil {
		w.onReload(cfg.Heuristics)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

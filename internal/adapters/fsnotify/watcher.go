// Package fsnotify invalidates cached indexes when catalog files change
// on disk, using github.com/fsnotify/fsnotify. It watches the license and
// rule directories, filters events down to catalog file types, and
// debounces rapid events (editors often trigger multiple writes per
// save), so a long-running scan service picks up rule edits without a
// restart.
package fsnotify

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Catalog file suffixes that affect the built index.
var catalogSuffixes = []string{
	".LICENSE",
	".SPDX",
	".RULE",
	".yml",
}

const debounceInterval = 50 * time.Millisecond

// Watcher monitors catalog directories and reports changes.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewWatcher creates a new catalog watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:   fw,
		done: make(chan struct{}),
	}, nil
}

// Watch starts monitoring the given directories. onChange is called with
// the absolute path of each changed catalog file; callers typically drop
// their cached index and rebuild lazily on the next scan.
func (w *Watcher) Watch(dirs []string, onChange func(filePath string)) error {
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := w.fw.Add(abs); err != nil {
			return err
		}
	}

	// Debounce state: last event time per file.
	debounce := make(map[string]time.Time)

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				path := event.Name
				if !isCatalogFile(path) {
					continue
				}

				last, exists := debounce[path]
				now := time.Now()
				if exists && now.Sub(last) < debounceInterval {
					continue
				}
				debounce[path] = now

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					onChange(path)
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Errors are swallowed, fsnotify recovers automatically.

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}

// isCatalogFile reports whether a path holds catalog content whose change
// invalidates the index.
func isCatalogFile(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range catalogSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

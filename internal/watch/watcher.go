// Package watch reports debounced changes in a set of directories.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/justyntemme/twinpane/internal/debug"
)

// DefaultDebounce is used when New is given a non-positive interval.
const DefaultDebounce = 200 * time.Millisecond

// DirWatcher watches directories and emits a directory path once its
// contents have stopped changing for the debounce interval.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]bool // currently watched paths
	events   chan string     // changed directory paths
	done     chan struct{}   // shutdown signal
	closed   sync.Once
	debounce time.Duration
}

// New creates a watcher.
func New(debounce time.Duration) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &DirWatcher{
		watcher:  w,
		watching: make(map[string]bool),
		events:   make(chan string, 16),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go dw.run()
	return dw, nil
}

// run processes file system events with debouncing
func (dw *DirWatcher) run() {
	lastEvent := make(map[string]time.Time)
	ticker := time.NewTicker(dw.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !(event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Write)) {
				continue
			}

			// fsnotify reports the changed entry; map it to the watched dir
			changed := filepath.Clean(event.Name)
			parent := filepath.Dir(changed)

			dw.mu.Lock()
			switch {
			case dw.watching[parent]:
				lastEvent[parent] = time.Now()
			case dw.watching[changed]:
				// the watched directory itself changed
				lastEvent[changed] = time.Now()
			}
			dw.mu.Unlock()
			debug.Log(debug.WATCH, "event: %s on %s", event.Op, changed)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.WATCH, "fsnotify error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for dir, at := range lastEvent {
				if now.Sub(at) < dw.debounce {
					continue
				}
				select {
				case dw.events <- dir:
					debug.Log(debug.WATCH, "changed: %s", dir)
				default:
					// consumer is behind; it will refresh on the next change
				}
				delete(lastEvent, dir)
			}
		}
	}
}

// Watch adds a directory to the watch list.
func (dw *DirWatcher) Watch(path string) error {
	path = filepath.Clean(path)
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watching[path] {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.watching[path] = true
	debug.Log(debug.WATCH, "watching %s", path)
	return nil
}

// Unwatch removes a directory from the watch list.
func (dw *DirWatcher) Unwatch(path string) {
	path = filepath.Clean(path)
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if !dw.watching[path] {
		return
	}
	if err := dw.watcher.Remove(path); err != nil {
		// the directory may already be gone
		debug.Log(debug.WATCH, "unwatch %s: %v", path, err)
	}
	delete(dw.watching, path)
}

// SetPaths replaces the watch list with paths. Paths that cannot be watched
// are skipped; the first such error is returned.
func (dw *DirWatcher) SetPaths(paths []string) error {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[filepath.Clean(p)] = true
	}

	dw.mu.Lock()
	var stale []string
	for p := range dw.watching {
		if !want[p] {
			stale = append(stale, p)
		}
	}
	dw.mu.Unlock()

	for _, p := range stale {
		dw.Unwatch(p)
	}
	var firstErr error
	for p := range want {
		if err := dw.Watch(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Paths returns the watched directories.
func (dw *DirWatcher) Paths() []string {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	out := make([]string, 0, len(dw.watching))
	for p := range dw.watching {
		out = append(out, p)
	}
	return out
}

// Events returns the channel of changed directories.
func (dw *DirWatcher) Events() <-chan string {
	return dw.events
}

// Close shuts down the watcher.
func (dw *DirWatcher) Close() error {
	var err error
	dw.closed.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}

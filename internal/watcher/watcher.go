// Package watcher provides file change notification for configuration files.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceWindow coalesces bursts of write events into a single callback.
// Editors and atomic-save tools typically emit several events per save.
const debounceWindow = 250 * time.Millisecond

// Watcher watches a single file and invokes a callback when it is
// written, removed, or replaced. The parent directory is watched so
// rename-over saves are still observed.
type Watcher struct {
	path     string
	onChange func()

	fw   *fsnotify.Watcher
	done chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	stopped bool
}

// New creates a watcher for the given file path.
// The callback fires after changes settle, not once per raw event.
func New(path string, onChange func()) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watcher: empty path")
	}
	if onChange == nil {
		return nil, fmt.Errorf("watcher: nil callback")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		fw:       fw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It watches the parent directory and filters
// events down to the target file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher: already started")
	}
	if w.stopped {
		return fmt.Errorf("watcher: stopped")
	}

	dir := filepath.Dir(w.path)
	if err := w.fw.Add(dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", dir, err)
	}

	w.started = true
	go w.loop()
	return nil
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleCallback()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", w.path).Msg("File watcher error")
		}
	}
}

// scheduleCallback arms the debounce timer, resetting it if already armed.
func (w *Watcher) scheduleCallback() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceWindow, w.onChange)
}

// Package watch notifies when the configuration file changes on disk.
package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/logging"
)

// Watcher watches one configuration file for changes. The parent directory
// is watched rather than the file itself so editor rename-and-replace saves
// are caught too.
type Watcher struct {
	watcher   *fsnotify.Watcher
	file      string
	callbacks []func()
	mu        sync.RWMutex
	done      chan struct{}
	log       logging.Logger
}

// New creates a watcher for the configuration file at path. A nil log means
// the process default logger.
func New(path string, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		log.Error("failed to watch directory", "path", dir, "error", err)
		return nil, err
	}

	log.Debug("watching directory for changes", "path", dir, "file", filepath.Base(path))

	return &Watcher{
		watcher: w,
		file:    filepath.Base(path),
		done:    make(chan struct{}),
		log:     log,
	}, nil
}

// OnChange registers a callback to be called when the watched file changes.
func (w *Watcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start watches for changes. It blocks until Stop is called.
func (w *Watcher) Start() {
	w.log.Info("configuration watcher started", "file", w.file)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.log.Debug("configuration file changed", "file", event.Name, "op", event.Op.String())
				w.notifyCallbacks()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher and unblocks Start.
func (w *Watcher) Stop() error {
	close(w.done)
	if err := w.watcher.Close(); err != nil {
		w.log.Error("failed to close watcher", "error", err)
		return err
	}
	w.log.Info("configuration watcher stopped")
	return nil
}

func (w *Watcher) notifyCallbacks() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb()
	}
}

package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceDelay is the default delay for debouncing file system events.
// Editors and deployment tools often produce bursts of write/rename events
// for a single logical change.
const DebounceDelay = 100 * time.Millisecond

// Watcher monitors the configuration file for changes and triggers provider
// reloads. It watches the containing directory rather than the file itself so
// that atomic rename-replace writes (the common editor and configd pattern)
// are still observed.
//
// Thread-safety: all public methods are safe for concurrent use.
type Watcher struct {
	provider *Provider
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	debounceDelay time.Duration
	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	// onReload, if set, is invoked after every reload attempt with its
	// outcome. Used by tests and by the server to surface reload status.
	onReload func(err error)

	done    chan struct{}
	stopped chan struct{}
}

// NewWatcher creates a watcher for the provider's configuration file.
// Call Start() to begin watching and Close() when done.
func NewWatcher(provider *Provider, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		provider:      provider,
		watcher:       fsw,
		logger:        logger,
		debounceDelay: DebounceDelay,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	dir := filepath.Dir(provider.Path())
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// SetDebounceDelay sets the debounce delay for batching rapid changes.
// Must be called before Start().
func (w *Watcher) SetDebounceDelay(d time.Duration) {
	w.debounceDelay = d
}

// SetOnReload registers a callback invoked after every reload attempt.
// Must be called before Start().
func (w *Watcher) SetOnReload(fn func(err error)) {
	w.onReload = fn
}

// Start begins the event processing loop.
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	<-w.stopped // Wait for event loop to exit
	return err
}

// eventLoop processes fsnotify events and debounces reloads.
func (w *Watcher) eventLoop() {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("config_watcher_error", "error", err)
			}
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only events on the config file itself are relevant.
	if filepath.Clean(event.Name) != filepath.Clean(w.provider.Path()) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	if w.logger != nil {
		w.logger.Debug("config_file_changed", "path", event.Name, "op", event.Op.String())
	}

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.reload)
	w.debounceMu.Unlock()
}

// reload performs the debounced provider reload.
func (w *Watcher) reload() {
	err := w.provider.Reload()
	if w.onReload != nil {
		w.onReload(err)
	}
}

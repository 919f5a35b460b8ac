// Package watcher re-triggers annotation display when a watched document
// changes on disk.
//
// Editors save in bursts (write, truncate, rename dances vary by editor), so
// raw fsnotify events are debounced: a quiet period must elapse before
// handlers run, and a burst of events against one path collapses into a
// single change notification.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent represents one debounced document change.
type ChangeEvent struct {
	Path    string
	ModTime time.Time
}

// ChangeHandler handles a batch of debounced document changes.
type ChangeHandler func(events []ChangeEvent) error

// FileFilter determines whether a changed path is interesting.
type FileFilter func(path string) bool

// DocumentWatcher watches document files and invokes handlers after a
// debounce window.
type DocumentWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	errFn     func(error)
	mutex     sync.RWMutex
}

type debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// New creates a document watcher with the given debounce window.
func New(debounceDelay time.Duration) (*DocumentWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DocumentWatcher{
		watcher: w,
		debouncer: &debouncer{
			delay:  debounceDelay,
			events: make(chan ChangeEvent, 100),
			output: make(chan []ChangeEvent, 10),
		},
	}, nil
}

// AddFilter adds a path filter; every filter must accept a path for its
// events to pass through.
func (dw *DocumentWatcher) AddFilter(filter FileFilter) {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()
	dw.filters = append(dw.filters, filter)
}

// AddHandler adds a change handler.
func (dw *DocumentWatcher) AddHandler(handler ChangeHandler) {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()
	dw.handlers = append(dw.handlers, handler)
}

// OnError installs a callback for watch-loop errors. Errors are otherwise
// dropped; the loop keeps running either way.
func (dw *DocumentWatcher) OnError(fn func(error)) {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()
	dw.errFn = fn
}

// Watch adds a file or directory to the watch set. Watching the containing
// directory rather than the file itself survives editors that replace the
// file on save.
func (dw *DocumentWatcher) Watch(path string) error {
	return dw.watcher.Add(path)
}

// Start launches the watch, debounce, and dispatch loops. They stop when ctx
// is cancelled.
func (dw *DocumentWatcher) Start(ctx context.Context) {
	go dw.debouncer.run(ctx)
	go dw.dispatch(ctx)
	go dw.watchLoop(ctx)
}

// Stop closes the underlying watcher.
func (dw *DocumentWatcher) Stop() error {
	dw.debouncer.mutex.Lock()
	if dw.debouncer.timer != nil {
		dw.debouncer.timer.Stop()
	}
	dw.debouncer.mutex.Unlock()
	return dw.watcher.Close()
}

func (dw *DocumentWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.mutex.RLock()
			errFn := dw.errFn
			dw.mutex.RUnlock()
			if errFn != nil {
				errFn(err)
			}
		}
	}
}

func (dw *DocumentWatcher) handleEvent(event fsnotify.Event) {
	// Only content-bearing operations matter for re-display.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	dw.mutex.RLock()
	filters := dw.filters
	dw.mutex.RUnlock()
	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	change := ChangeEvent{Path: event.Name, ModTime: time.Now()}
	select {
	case dw.debouncer.events <- change:
	default:
		// Channel full, drop; the debounced batch already covers the burst.
	}
}

func (dw *DocumentWatcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-dw.debouncer.output:
			dw.mutex.RLock()
			handlers := dw.handlers
			errFn := dw.errFn
			dw.mutex.RUnlock()
			for _, handler := range handlers {
				if err := handler(events); err != nil && errFn != nil {
					errFn(err)
				}
			}
		}
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.add(event)
		}
	}
}

func (d *debouncer) add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// One event per path; the latest wins.
	byPath := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		byPath[event.Path] = event
	}
	events := make([]ChangeEvent, 0, len(byPath))
	for _, event := range byPath {
		events = append(events, event)
	}

	select {
	case d.output <- events:
	default:
	}
	d.pending = d.pending[:0]
}

// DocumentFilter accepts the text-document extensions the engine annotates.
func DocumentFilter(path string) bool {
	switch filepath.Ext(path) {
	case ".adoc", ".asciidoc", ".asc", ".txt":
		return true
	default:
		return false
	}
}

// PathFilter accepts only the single given path.
func PathFilter(target string) FileFilter {
	clean := filepath.Clean(target)
	return func(path string) bool {
		return filepath.Clean(path) == clean
	}
}

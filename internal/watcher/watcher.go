// Package watcher monitors template source files and delivers
// debounced change batches so a burst of editor writes triggers one
// recompile instead of many.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coralpages/reef/internal/logging"
)

// EventType classifies a file change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Change is one debounced file change.
type Change struct {
	Type    EventType
	Path    string
	ModTime time.Time
}

// Filter decides whether a path is interesting. All registered filters
// must pass.
type Filter func(path string) bool

// Handler receives a debounced batch of changes.
type Handler func(changes []Change) error

// TemplateWatcher watches template directories and coalesces rapid
// changes before notifying handlers.
type TemplateWatcher struct {
	fs       *fsnotify.Watcher
	logger   logging.Logger
	debounce time.Duration

	mu       sync.Mutex
	filters  []Filter
	handlers []Handler
	pending  map[string]Change
	timer    *time.Timer
}

// New creates a watcher that groups changes arriving within debounce
// of each other into one handler call.
func New(debounce time.Duration, logger logging.Logger) (*TemplateWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &TemplateWatcher{
		fs:       fs,
		logger:   logger.WithComponent("watcher"),
		debounce: debounce,
		pending:  make(map[string]Change),
	}, nil
}

// AddFilter registers a path filter.
func (w *TemplateWatcher) AddFilter(f Filter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filters = append(w.filters, f)
}

// AddHandler registers a change handler.
func (w *TemplateWatcher) AddHandler(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// AddPath watches a single file or directory.
func (w *TemplateWatcher) AddPath(path string) error {
	return w.fs.Add(filepath.Clean(path))
}

// AddRecursive watches root and every directory below it.
func (w *TemplateWatcher) AddRecursive(root string) error {
	return filepath.Walk(filepath.Clean(root), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Start begins delivering events until ctx is canceled.
func (w *TemplateWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop closes the underlying watcher. Pending debounced changes are
// discarded.
func (w *TemplateWatcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *TemplateWatcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.observe(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "watch error")
		}
	}
}

func (w *TemplateWatcher) observe(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.filters {
		if !f(event.Name) {
			return
		}
	}

	change := Change{Type: eventType(event.Op), Path: event.Name}
	if info, err := os.Stat(event.Name); err == nil {
		change.ModTime = info.ModTime()
	}

	// Later events for the same path win, so a create followed by a
	// write collapses to one change.
	w.pending[event.Name] = change

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *TemplateWatcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changes := make([]Change, 0, len(w.pending))
	for _, c := range w.pending {
		changes = append(changes, c)
	}
	w.pending = make(map[string]Change)
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		if err := h(changes); err != nil {
			w.logger.Warn(context.Background(), err, "change handler failed")
		}
	}
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated
	case op.Has(fsnotify.Remove):
		return EventDeleted
	case op.Has(fsnotify.Rename):
		return EventRenamed
	default:
		return EventModified
	}
}

// ExtensionFilter passes only paths with one of the given extensions.
func ExtensionFilter(exts ...string) Filter {
	return func(path string) bool {
		got := filepath.Ext(path)
		for _, want := range exts {
			if strings.EqualFold(got, want) {
				return true
			}
		}
		return false
	}
}

// NoHiddenFilter rejects dotfiles and paths inside dot directories.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return false
		}
	}
	return true
}

// Package watcher turns filesystem notifications into debounced reindex
// batches for the engine.
package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"fidx/internal/slogutil"
)

// EventType classifies a filesystem event.
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	}
	return "unknown"
}

// Event is one filesystem change.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// BatchHandler receives a debounced batch of events.
type BatchHandler func(events []Event)

// Config controls the watcher.
type Config struct {
	Enabled        bool
	Debounce       time.Duration
	IgnorePatterns []string
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Debounce: 500 * time.Millisecond,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
			".git/**",
			".fidx/**",
		},
	}
}

// Watcher watches directories and emits debounced event batches.
type Watcher struct {
	config    Config
	logger    *slog.Logger
	fs        *fsnotify.Watcher
	debouncer *BatchDebouncer

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a watcher; Start must be called before events flow.
func New(config Config, logger *slog.Logger, handler BatchHandler) (*Watcher, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	return &Watcher{
		config:    config,
		logger:    logger,
		fs:        fs,
		debouncer: NewBatchDebouncer(config.Debounce, handler),
		done:      make(chan struct{}),
	}, nil
}

// Add watches a directory (non-recursive, fsnotify semantics).
func (w *Watcher) Add(dir string) error {
	return w.fs.Add(dir)
}

// Start begins delivering debounced batches.
func (w *Watcher) Start() {
	if !w.config.Enabled {
		w.logger.Info("watcher disabled")
		return
	}
	w.wg.Add(1)
	go w.loop()
	w.logger.Debug("watcher started", "debounce", w.config.Debounce)
}

// Stop shuts the watcher down. Pending debounced events are dropped.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		w.debouncer.Cancel()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			et, ok := mapOp(ev.Op)
			if !ok {
				continue
			}
			w.debouncer.Add(Event{Type: et, Path: ev.Name, Timestamp: time.Now()})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func mapOp(op fsnotify.Op) (EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate, true
	case op.Has(fsnotify.Write):
		return EventModify, true
	case op.Has(fsnotify.Remove):
		return EventDelete, true
	case op.Has(fsnotify.Rename):
		return EventRename, true
	}
	return 0, false
}

// ignored reports whether a path matches any ignore pattern. Patterns
// ending in "/**" match everything under that directory; other patterns
// match against the base name.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	norm := filepath.ToSlash(path)
	for _, pat := range w.config.IgnorePatterns {
		if dir, ok := strings.CutSuffix(pat, "/**"); ok {
			if norm == dir ||
				strings.HasPrefix(norm, dir+"/") ||
				strings.Contains(norm, "/"+dir+"/") ||
				strings.HasSuffix(norm, "/"+dir) {
				return true
			}
			continue
		}
		if matched, _ := filepath.Match(pat, base); matched {
			return true
		}
	}
	return false
}

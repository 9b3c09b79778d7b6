package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/defkit/jsdef/internal/logger"
)

// Watcher observes a project tree and invokes a rebuild callback with
// each debounced batch of relevant changes. It never touches a catalog
// itself: rebuild policy belongs to the caller.
type Watcher struct {
	config    Config
	root      string
	onRebuild func([]FileEvent)

	fsw       *fsnotify.Watcher
	fswMu     sync.Mutex
	debouncer *Debouncer

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	log *slog.Logger
}

func New(config Config, root string, onRebuild func([]FileEvent)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		root:      root,
		onRebuild: onRebuild,
		fsw:       fsw,
		log:       logger.ForComponent("watcher"),
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatch, w.onFlush)
	return w, nil
}

// Start registers the root tree and begins event handling. The caller
// is expected to have built the initial catalog already.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.add(w.root); err != nil {
		return err
	}
	w.walkAndAdd(w.root)

	w.mu.Lock()
	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.log.Info("watching project tree", "root", w.root)
	go w.handleEvents()
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.debouncer.Stop()

	w.fswMu.Lock()
	defer w.fswMu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) add(path string) error {
	w.fswMu.Lock()
	defer w.fswMu.Unlock()
	return w.fsw.Add(path)
}

// walkAndAdd registers every non-ignored subdirectory. Files need no
// registration: fsnotify reports them through their parent directory.
func (w *Watcher) walkAndAdd(path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		w.log.Debug("failed to read directory", "path", path, "error", err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		full := filepath.Join(path, entry.Name())
		if w.shouldIgnore(full) {
			continue
		}
		if err := w.add(full); err != nil {
			w.log.Debug("failed to watch directory", "path", full, "error", err)
			continue
		}
		w.walkAndAdd(full)
	}
}

func (w *Watcher) handleEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnore(event.Name) {
						if err := w.add(event.Name); err == nil {
							w.walkAndAdd(event.Name)
						}
					}
				}
			}

			if ev := w.convertEvent(event); ev != nil {
				w.debouncer.Add(*ev)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	if w.shouldIgnore(event.Name) {
		return nil
	}

	var eventType EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	case event.Has(fsnotify.Remove):
		eventType = EventDelete
	case event.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return nil
	}

	ev := FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
	if !relevant(ev) {
		return nil
	}
	return &ev
}

func (w *Watcher) onFlush(events []FileEvent) {
	if len(events) == 0 || w.onRebuild == nil {
		return
	}
	w.log.Info("change batch ready", "count", len(events))
	w.onRebuild(events)
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if !w.config.WatchHidden && strings.HasPrefix(base, ".") {
		return true
	}
	if strings.Contains(base, "node_modules") {
		return true
	}

	for _, pattern := range w.config.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, path); match {
			return true
		}
	}
	return false
}

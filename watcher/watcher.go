package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"geminialuminium/common"
	"geminialuminium/config"
	"geminialuminium/pipeline"
)

// DefaultDebounce is how long a directory must be quiet before it is reprocessed
const DefaultDebounce = 500 * time.Millisecond

// CategoryProcessor re-renders one source directory
type CategoryProcessor interface {
	ProcessCategory(ctx context.Context, sourceDir string) (pipeline.CategoryStats, []common.ImageResult, error)
}

// SourceForgetter drops stored state for a deleted original
type SourceForgetter interface {
	Forget(ctx context.Context, sourcePath string) error
}

// Watcher monitors the source directories and reprocesses a category when
// one of its originals is added or changed
type Watcher struct {
	cfg       *config.Config
	processor CategoryProcessor
	forgetter SourceForgetter
	watcher   *fsnotify.Watcher
	events    chan Event
	markers   []string
	debounce  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	cancel  context.CancelFunc

	// one category run at a time
	runMu sync.Mutex
}

// Event represents a file system event or a completed reprocess
type Event struct {
	Type     EventType
	FilePath string
	Stats    *pipeline.CategoryStats // set for EventProcessed
	Err      error
}

// EventType represents the type of watcher event
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventProcessed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// NewWatcher creates a new source directory watcher
func NewWatcher(cfg *config.Config, processor CategoryProcessor, sizes []common.SizeSpec) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:       cfg,
		processor: processor,
		watcher:   fsWatcher,
		events:    make(chan Event, 100),
		markers:   common.ReservedMarkers(sizes),
		debounce:  DefaultDebounce,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// SetForgetter sets what is told about deleted originals
func (w *Watcher) SetForgetter(f SourceForgetter) {
	w.mu.Lock()
	w.forgetter = f
	w.mu.Unlock()
}

// SetDebounce changes the quiet period before a directory is reprocessed
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins monitoring every configured source directory that exists
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	watched := 0
	for _, dir := range w.cfg.SourceDirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			log.Printf("⚠️  Not watching missing directory: %s", dir)
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			cancel()
			return fmt.Errorf("failed to watch folder %s: %w", dir, err)
		}
		log.Printf("👀 Watching folder: %s", dir)
		watched++
	}
	if watched == 0 {
		cancel()
		return fmt.Errorf("none of the %d source directories exist", len(w.cfg.SourceDirs))
	}

	go w.processEvents(ctx)

	return nil
}

// processEvents handles fsnotify events and schedules reprocessing
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if name == "" || name[0] == '.' {
				continue
			}
			if !common.IsSourceCandidate(name, w.markers) {
				continue
			}

			var eventType EventType
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				eventType = EventCreated
			case event.Op&fsnotify.Write == fsnotify.Write:
				eventType = EventModified
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				eventType = EventDeleted
			default:
				continue // chmod
			}

			log.Printf("📄 %s: %s", eventType, event.Name)
			w.emit(Event{Type: eventType, FilePath: event.Name})

			if eventType == EventDeleted {
				w.forget(ctx, event.Name)
				continue
			}
			w.schedule(ctx, filepath.Dir(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// schedule (re)starts the debounce timer of a source directory
func (w *Watcher) schedule(ctx context.Context, dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if timer, exists := w.pending[dir]; exists {
		timer.Stop()
	}
	w.pending[dir] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, dir)
		w.mu.Unlock()

		w.reprocess(ctx, dir)
	})
}

// forget drops the manifest record so a re-added original is rendered again
func (w *Watcher) forget(ctx context.Context, path string) {
	w.mu.Lock()
	forgetter := w.forgetter
	w.mu.Unlock()

	if forgetter == nil {
		return
	}
	if err := forgetter.Forget(ctx, path); err != nil {
		log.Printf("Failed to forget %s: %v", path, err)
	}
}

func (w *Watcher) reprocess(ctx context.Context, dir string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	stats, _, err := w.processor.ProcessCategory(ctx, dir)
	if err != nil {
		log.Printf("Failed to reprocess %s: %v", dir, err)
	}
	w.emit(Event{Type: EventProcessed, FilePath: dir, Stats: &stats, Err: err})
}

// emit delivers an event without blocking; events are dropped when nobody reads
func (w *Watcher) emit(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	select {
	case w.events <- e:
	default:
		log.Printf("Event channel full, dropping %s event for %s", e.Type, e.FilePath)
	}
}

// Events returns the event channel
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and any pending reprocess
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for dir, timer := range w.pending {
		timer.Stop()
		delete(w.pending, dir)
	}
	if w.cancel != nil {
		w.cancel()
	}
	close(w.events)
	w.mu.Unlock()

	return w.watcher.Close()
}

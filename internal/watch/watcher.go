// Package watch notices edits to the source spreadsheet after the CSV cache
// has been built. It only reports; the cache is never rebuilt from here.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Event describes one debounced change of the spreadsheet.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Stale     bool      `json:"stale"`
}

// Config selects the files to compare.
type Config struct {
	Spreadsheet string
	CSV         string
	Debounce    time.Duration
}

// SourceWatcher warns when the spreadsheet changes while a CSV cache exists.
type SourceWatcher struct {
	cfg     Config
	log     *zap.Logger
	watcher *fsnotify.Watcher

	// OnChange, when set, is called after every debounced change.
	OnChange func(Event)

	mu     sync.Mutex
	timer  *time.Timer
	events []Event
}

// New creates a SourceWatcher. Call Start to begin watching.
func New(cfg Config, log *zap.Logger) (*SourceWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SourceWatcher{cfg: cfg, log: log.Named("watch"), watcher: fsw}, nil
}

// Start watches the spreadsheet's directory until ctx is cancelled.
// Editors often replace the file instead of writing it, so the directory
// is watched and events are filtered by name.
func (w *SourceWatcher) Start(ctx context.Context) error {
	abs, err := filepath.Abs(w.cfg.Spreadsheet)
	if err != nil {
		return fmt.Errorf("could not resolve %s: %w", w.cfg.Spreadsheet, err)
	}
	w.cfg.Spreadsheet = abs
	dir := filepath.Dir(abs)
	if err := w.watcher.Add(dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}
	w.log.Debug("watching spreadsheet", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *SourceWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Clean(event.Name) != w.cfg.Spreadsheet {
		return
	}
	// Office lock files
	if strings.HasPrefix(filepath.Base(event.Name), "~$") {
		return
	}

	op := event.Op.String()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() { w.report(op) })
	w.mu.Unlock()
}

func (w *SourceWatcher) report(op string) {
	evt := Event{Time: time.Now(), Path: w.cfg.Spreadsheet, Operation: op}
	if _, err := os.Stat(w.cfg.CSV); err == nil {
		evt.Stale = true
		w.log.Warn("spreadsheet changed after the CSV cache was built; answers use the old data until the cache is deleted and the app restarted",
			zap.String("spreadsheet", w.cfg.Spreadsheet),
			zap.String("csv", w.cfg.CSV))
	} else {
		w.log.Info("spreadsheet changed", zap.String("spreadsheet", w.cfg.Spreadsheet))
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	handler := w.OnChange
	w.mu.Unlock()

	if handler != nil {
		handler(evt)
	}
}

// Events returns all reported changes.
func (w *SourceWatcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Event, len(w.events))
	copy(out, w.events)
	return out
}

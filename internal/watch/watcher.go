// Package watch re-triggers optimization when an input document changes.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"proxeek/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc receives the settled paths of one debounced batch of changes.
type ChangeFunc func(ctx context.Context, changed []string)

// InputWatcher watches the optimizer's input documents. Files are watched
// through their parent directory so that editors which replace a file by
// rename are still seen. A directory input matches any
// haptic_annotation*.json inside it.
type InputWatcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	files       map[string]bool // cleaned file inputs
	dirs        map[string]bool // cleaned directory inputs
	pending     map[string]time.Time
	debounceDur time.Duration
	onChange    ChangeFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats counts watcher activity.
type Stats struct {
	Events    int
	Batches   int
	Errors    int
	LastBatch []string
}

// NewInputWatcher creates a watcher over inputs. debounce <= 0 means 500ms.
func NewInputWatcher(inputs []string, debounce time.Duration, onChange ChangeFunc) (*InputWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	iw := &InputWatcher{
		watcher:     w,
		files:       make(map[string]bool),
		dirs:        make(map[string]bool),
		pending:     make(map[string]time.Time),
		debounceDur: debounce,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, in := range inputs {
		if in == "" {
			continue
		}
		clean := filepath.Clean(in)
		if info, err := os.Stat(clean); err == nil && info.IsDir() {
			iw.dirs[clean] = true
		} else {
			iw.files[clean] = true
		}
	}
	return iw, nil
}

// Start registers the watches and begins the event loop in a goroutine.
func (iw *InputWatcher) Start(ctx context.Context) error {
	iw.mu.Lock()
	if iw.running {
		iw.mu.Unlock()
		return nil
	}
	iw.running = true
	iw.mu.Unlock()

	watched := make(map[string]bool)
	for f := range iw.files {
		watched[filepath.Dir(f)] = true
	}
	for d := range iw.dirs {
		watched[d] = true
	}
	for dir := range watched {
		if err := iw.watcher.Add(dir); err != nil {
			logging.Get(logging.CategoryWatch).Warn("cannot watch %s: %v", dir, err)
			continue
		}
		logging.Watch("Watching %s", dir)
	}

	go iw.run(ctx)
	return nil
}

// Stop ends the event loop and closes the underlying watcher. Safe to call twice.
func (iw *InputWatcher) Stop() {
	iw.mu.Lock()
	if !iw.running {
		iw.mu.Unlock()
		return
	}
	iw.running = false
	iw.mu.Unlock()

	close(iw.stopCh)
	<-iw.doneCh

	if err := iw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

// Stats returns a snapshot of the counters.
func (iw *InputWatcher) Stats() Stats {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	s := iw.stats
	s.LastBatch = append([]string(nil), iw.stats.LastBatch...)
	return s
}

func (iw *InputWatcher) run(ctx context.Context) {
	defer close(iw.doneCh)

	tick := iw.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-iw.stopCh:
			return
		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			iw.handleEvent(event)
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)
			iw.mu.Lock()
			iw.stats.Errors++
			iw.mu.Unlock()
		case <-ticker.C:
			iw.flush(ctx)
		}
	}
}

func (iw *InputWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	name := filepath.Clean(event.Name)
	if !iw.matches(name) {
		return
	}
	logging.WatchDebug("%s %s", event.Op, name)

	iw.mu.Lock()
	iw.stats.Events++
	iw.pending[name] = time.Now()
	iw.mu.Unlock()
}

func (iw *InputWatcher) matches(name string) bool {
	if iw.files[name] {
		return true
	}
	base := filepath.Base(name)
	return iw.dirs[filepath.Dir(name)] &&
		strings.HasPrefix(base, "haptic_annotation") && strings.HasSuffix(base, ".json")
}

// flush hands every path whose last event is older than the debounce window
// to onChange as one batch. Nothing is flushed while any path is still settling.
func (iw *InputWatcher) flush(ctx context.Context) {
	iw.mu.Lock()
	if len(iw.pending) == 0 {
		iw.mu.Unlock()
		return
	}
	now := time.Now()
	for _, t := range iw.pending {
		if now.Sub(t) < iw.debounceDur {
			iw.mu.Unlock()
			return
		}
	}
	batch := make([]string, 0, len(iw.pending))
	for p := range iw.pending {
		batch = append(batch, p)
	}
	iw.pending = make(map[string]time.Time)
	sort.Strings(batch)
	iw.stats.Batches++
	iw.stats.LastBatch = batch
	iw.mu.Unlock()

	logging.Watch("Inputs changed: %s", strings.Join(batch, ", "))
	if iw.onChange != nil {
		iw.onChange(ctx, batch)
	}
}

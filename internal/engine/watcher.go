package engine

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/codegraph/internal/config"
	"github.com/standardbeagle/codegraph/internal/debug"
	"github.com/standardbeagle/codegraph/internal/ignore"
	"github.com/standardbeagle/codegraph/internal/lang"
)

// Watcher subscribes to filesystem events under the project root, filters
// them through the scope and registry, coalesces them into deduplicated
// batches, and posts each batch to the engine. It never touches the graph.
type Watcher struct {
	cfg      *config.Config
	scope    *ignore.Scope
	registry *lang.Registry
	submit   func([]string)

	fs        *fsnotify.Watcher
	debouncer *debouncer

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	events  int64
	batches int64
	statsMu sync.Mutex
}

// NewWatcher builds a watcher; Start arms it.
func NewWatcher(cfg *config.Config, scope *ignore.Scope, registry *lang.Registry, submit func([]string)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		cfg:      cfg,
		scope:    scope,
		registry: registry,
		submit:   submit,
		fs:       fs,
	}
	w.debouncer = newDebouncer(time.Duration(cfg.DebounceMs)*time.Millisecond, w.flush)
	return w, nil
}

// Start adds recursive watches and launches the event loop. Idempotent.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.addWatches(w.cfg.ProjectRoot); err != nil {
		return err
	}
	w.done = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.processEvents()
	debug.LogWatch("watcher started on %s (debounce %dms)\n", w.cfg.ProjectRoot, w.cfg.DebounceMs)
	return nil
}

// Stop cancels the debounce timer, closes the event source and joins the
// event loop. Events delivered after Stop are discarded.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	w.debouncer.stop()
	w.fs.Close()
	w.wg.Wait()
	debug.LogWatch("watcher stopped\n")
}

// Running reports liveness.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns events-accepted and batches-flushed counters.
func (w *Watcher) Stats() (events, batches int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.events, w.batches
}

// addWatches registers every non-ignored directory, cycle-safe across
// symlinks.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		if path != root {
			rel, err := filepath.Rel(root, path)
			if err == nil && w.scope.IsIgnored(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		if err := w.fs.Add(path); err != nil {
			debug.LogWatch("failed to watch %s: %v\n", path, err)
		}
		return nil
	})
}

// processEvents consumes fsnotify events until Stop.
func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			debug.LogWatch("fsnotify error: %v\n", err)
		}
	}
}

// handleEvent filters one event and feeds accepted paths to the debouncer.
// A move arrives as a rename of the old path plus a create of the new one;
// both land in the same batch, where the engine resolves each side by
// stat.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.cfg.ProjectRoot, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		// New directories get a watch unless ignored.
		if event.Op&fsnotify.Create != 0 && !w.scope.IsIgnored(rel, true) {
			if err := w.fs.Add(event.Name); err != nil {
				debug.LogWatch("failed to watch new dir %s: %v\n", event.Name, err)
			}
		}
		return
	}

	if w.scope.IsIgnored(rel, false) || !w.registry.IsSupported(rel) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.statsMu.Lock()
	w.events++
	w.statsMu.Unlock()
	w.debouncer.add(rel)
}

// flush hands one deduplicated batch to the engine.
func (w *Watcher) flush(paths []string) {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}
	w.statsMu.Lock()
	w.batches++
	w.statsMu.Unlock()
	debug.LogWatch("flushing batch of %d paths\n", len(paths))
	w.submit(paths)
}

// debouncer coalesces paths: every add (re)starts the timer; on fire the
// dirty set is swapped out atomically and delivered as one batch.
type debouncer struct {
	mu      sync.Mutex
	dirty   map[string]bool
	timer   *time.Timer
	wait    time.Duration
	deliver func([]string)
	stopped bool
}

func newDebouncer(wait time.Duration, deliver func([]string)) *debouncer {
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &debouncer{
		dirty:   make(map[string]bool),
		wait:    wait,
		deliver: deliver,
	}
}

func (d *debouncer) add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.dirty[path] = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.dirty) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(d.dirty))
	for p := range d.dirty {
		batch = append(batch, p)
	}
	d.dirty = make(map[string]bool)
	d.mu.Unlock()

	d.deliver(batch)
}

// stop cancels the pending timer; paths still buffered are dropped, which
// is acceptable because stop only happens on shutdown.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

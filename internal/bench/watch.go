package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"plannerd/internal/logging"
)

// Watcher re-runs a benchmark sweep whenever task files under the
// directory change. Events are debounced so one editor save (which often
// lands as a create/write/rename burst) triggers one sweep. Sweeps run on
// the event loop itself, so they never overlap; changes arriving mid-sweep
// settle in the debounce map and fire the next one.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	opts        Options
	onReport    func(*Report, error)
	exts        map[string]bool
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	sweeps      int
}

// NewWatcher prepares a watcher over dir. onReport receives every sweep
// outcome, including the initial one Start performs before any change.
func NewWatcher(dir string, opts Options, onReport func(*Report, error)) (*Watcher, error) {
	exts, err := extsForFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:     fw,
		dir:         dir,
		opts:        opts,
		onReport:    onReport,
		exts:        exts,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start runs one sweep immediately, then begins watching. Non-blocking;
// the event loop runs in a goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logging.Bench("watch: monitoring %s", w.dir)

	w.sweep(ctx)
	go w.run(ctx)
	return nil
}

// Stop halts the event loop and waits for it to drain. A sweep already in
// flight finishes first.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.BenchError("watch: error closing watcher: %v", err)
	}
	logging.Bench("watch: stopped after %d sweeps", w.Sweeps())
}

// Sweeps returns how many sweeps have completed.
func (w *Watcher) Sweeps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sweeps
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Bench("watch: context canceled")
			return

		case <-w.stopCh:
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
			logging.BenchError("watch error: %v", err)

		case <-debounceTicker.C:
			if w.takeSettled() {
				w.sweep(ctx)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.exts[filepath.Ext(event.Name)] {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.BenchDebug("watch: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// takeSettled reports whether any change has sat past the debounce window
// and clears those entries.
func (w *Watcher) takeSettled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	settled := false
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled = true
		}
	}
	return settled
}

func (w *Watcher) sweep(ctx context.Context) {
	report, err := Run(ctx, w.dir, w.opts)
	if err != nil {
		logging.BenchWarn("watch: sweep failed: %v", err)
	}
	if w.onReport != nil {
		w.onReport(report, err)
	}

	w.mu.Lock()
	w.sweeps++
	w.mu.Unlock()
}

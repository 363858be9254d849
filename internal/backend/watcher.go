package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/atomicstack/tmux-popup-find/internal/document"
	"github.com/atomicstack/tmux-popup-find/internal/logging/events"
	"github.com/fsnotify/fsnotify"
)

// Kind represents the type of data emitted by the backend watcher.
type Kind int

const (
	KindDocument Kind = iota
	KindPane
)

// Event conveys refreshed content or an error from a watched source.
type Event struct {
	Kind   Kind
	Source string
	Lines  []string
	Err    error
}

// Watcher follows a document file or a tmux pane and publishes an event
// whenever its content changes.
type Watcher struct {
	source string
	mode   string

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	wg     sync.WaitGroup
}

var newFSWatcher = fsnotify.NewWatcher

const (
	reloadInterval  = 250 * time.Millisecond
	settleDelay     = 50 * time.Millisecond
	defaultInterval = time.Second
)

func newWatcher(source, mode string) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		source: source,
		mode:   mode,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 16),
	}
}

// WatchFile follows path with fsnotify, falling back to polling its size and
// modification time every interval when fsnotify is unavailable.
func WatchFile(path string, interval time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	fsw, err := newFSWatcher()
	if err == nil {
		// The directory is watched so editors that save by rename keep working.
		if err = fsw.Add(filepath.Dir(abs)); err != nil {
			_ = fsw.Close()
		}
	}
	if err != nil {
		w := newWatcher(abs, "polling")
		w.startFilePoller(abs, interval)
		w.finish()
		events.App.Watch(abs, w.mode)
		return w, nil
	}

	w := newWatcher(abs, "fsnotify")
	w.wg.Add(1)
	go w.notify(fsw, abs)
	w.finish()
	events.App.Watch(abs, w.mode)
	return w, nil
}

// WatchPane polls capture every interval and emits the pane content when it
// differs from the previous capture.
func WatchPane(target string, capture func() ([]string, error), interval time.Duration) *Watcher {
	w := newWatcher(target, "capture")
	var last []string
	seen := false
	throttle := newThrottle(reloadInterval)
	w.wg.Add(1)
	go w.poll(interval, func(ctx context.Context) (Event, bool) {
		throttle.wait()
		lines, err := capture()
		if err != nil {
			return Event{Kind: KindPane, Source: target, Err: err}, true
		}
		if seen && slices.Equal(lines, last) {
			return Event{}, false
		}
		seen = true
		last = lines
		return Event{Kind: KindPane, Source: target, Lines: lines}, true
	}, false)
	w.finish()
	events.App.Watch(target, w.mode)
	return w
}

func (w *Watcher) finish() {
	go func() {
		w.wg.Wait()
		close(w.events)
	}()
}

// Events returns a channel of backend events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Mode reports how the source is followed: fsnotify, polling or capture.
func (w *Watcher) Mode() string {
	return w.mode
}

// Source returns the watched path or pane target.
func (w *Watcher) Source() string {
	return w.source
}

// Stop cancels the watcher. Use Wait if a clean drain is required.
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until all goroutines have exited and the events channel is
// closed. Call after Stop when a clean shutdown is required.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) emit(evt Event) bool {
	select {
	case <-w.ctx.Done():
		return false
	case w.events <- evt:
		return true
	}
}

func (w *Watcher) reload(path string) Event {
	lines, err := document.ReadFile(path)
	return Event{Kind: KindDocument, Source: path, Lines: lines, Err: err}
}

func (w *Watcher) notify(fsw *fsnotify.Watcher, path string) {
	defer w.wg.Done()
	defer fsw.Close()

	// Writes arrive in bursts; reload once the file has been quiet for
	// settleDelay.
	settle := time.NewTimer(time.Hour)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case evt, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			settle.Reset(settleDelay)
		case <-settle.C:
			if _, err := os.Stat(path); err != nil {
				// Mid-rename; the Create that follows reloads it.
				continue
			}
			if !w.emit(w.reload(path)) {
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if !w.emit(Event{Kind: KindDocument, Source: path, Err: err}) {
				return
			}
		}
	}
}

func (w *Watcher) startFilePoller(path string, interval time.Duration) {
	var lastMod time.Time
	var lastSize int64
	if info, err := os.Stat(path); err == nil {
		lastMod, lastSize = info.ModTime(), info.Size()
	}
	w.wg.Add(1)
	go w.poll(interval, func(ctx context.Context) (Event, bool) {
		info, err := os.Stat(path)
		if err != nil {
			return Event{Kind: KindDocument, Source: path, Err: err}, true
		}
		if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
			return Event{}, false
		}
		lastMod, lastSize = info.ModTime(), info.Size()
		return w.reload(path), true
	}, true)
}

func (w *Watcher) poll(interval time.Duration, fetch func(context.Context) (Event, bool), skipFirst bool) {
	defer w.wg.Done()
	if interval <= 0 {
		interval = defaultInterval
	}

	emit := func() bool {
		evt, changed := fetch(w.ctx)
		if !changed {
			return true
		}
		return w.emit(evt)
	}

	if !skipFirst && !emit() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if !emit() {
				return
			}
		}
	}
}

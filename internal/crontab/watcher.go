package crontab

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	logx "hotcron/pkg/logx"
)

// ErrWatchClosed is wrapped in a WatchError when fsnotify closes its channels
// while a watch is still wanted.
var ErrWatchClosed = errors.New("watcher closed")

// Watcher produces "file changed" notifications for the crontab file.
type Watcher struct {
	store *Store
	log   logx.Logger
}

func NewWatcher(store *Store, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{store: store, log: log}
}

// Watch is one active subscription to file modifications.
//
// Events() is closed once the watch ends, either because the context was
// cancelled / Close was called (Err() == nil) or because the watch failed
// (Err() returns a *WatchError).
type Watch struct {
	events chan string
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Events delivers the watched path once per modification event.
func (w *Watch) Events() <-chan string { return w.events }

// Done is closed after the watch has released its handle.
func (w *Watch) Done() <-chan struct{} { return w.done }

// Err returns the terminal error, if any. Only meaningful after Done.
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close stops the watch and waits for the handle to be released.
func (w *Watch) Close() error {
	w.cancel()
	<-w.done
	return nil
}

func (w *Watch) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

// Watch ensures the file exists and starts watching it.
//
// The parent directory is watched and events are filtered by base name, so
// editors that replace the file (write temp + rename) keep being observed.
// Every Write/Create/Rename/Remove/Chmod event for the file yields exactly one
// notification: there is no debouncing and nothing is dropped. Delivery blocks
// until the consumer receives or ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (*Watch, error) {
	path := w.store.Path()
	if err := w.store.EnsureExists(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	file := filepath.Base(path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Path: path, Err: err}
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, &WatchError{Path: path, Err: err}
	}

	wctx, cancel := context.WithCancel(ctx)
	wt := &Watch{
		events: make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	w.log.Debug("crontab watcher started", logx.String("dir", dir), logx.String("file", file))

	go func() {
		defer close(wt.done)
		defer close(wt.events)
		defer func() { _ = fw.Close() }()
		defer cancel()

		notify := func() bool {
			select {
			case wt.events <- path:
				return true
			case <-wctx.Done():
				return false
			}
		}

		for {
			select {
			case <-wctx.Done():
				w.log.Debug("crontab watcher stopped", logx.String("path", path))
				return
			case ev, ok := <-fw.Events:
				if !ok {
					wt.fail(&WatchError{Path: path, Err: ErrWatchClosed})
					return
				}
				// Compare by basename (more robust across absolute/relative paths).
				if filepath.Base(ev.Name) != file {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) == 0 {
					continue
				}
				w.log.Trace("crontab change detected", logx.String("path", path), logx.String("op", ev.Op.String()))
				if !notify() {
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					wt.fail(&WatchError{Path: path, Err: ErrWatchClosed})
					return
				}
				if err == nil {
					continue
				}
				// Overflow means events were lost; one notification forces a re-read.
				if errors.Is(err, fsnotify.ErrEventOverflow) || strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("crontab watch overflow; forcing reload", logx.Err(err), logx.String("path", path))
					if !notify() {
						return
					}
					continue
				}
				w.log.Error("crontab watch failed", logx.Err(err), logx.String("path", path))
				wt.fail(&WatchError{Path: path, Err: err})
				return
			}
		}
	}()

	return wt, nil
}

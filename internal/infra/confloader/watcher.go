package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a
// subscription's callback runs.
const DefaultDebounce = 100 * time.Millisecond

// Watcher runs callbacks when watched files are written or replaced. It
// watches each file's directory, so editors that save by rename are seen,
// and ignores events for files nobody subscribed to.
type Watcher struct {
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu     sync.Mutex
	subs   map[string][]*subscription // by absolute path
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// subscription groups files that share one callback and one timer, so a
// burst of writes across them runs the callback once.
type subscription struct {
	fn    func()
	timer *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period. Zero runs callbacks on every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher starts a watcher with no subscriptions.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		subs:     make(map[string][]*subscription),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Watch runs fn after any of paths changes.
func (w *Watcher) Watch(fn func(), paths ...string) error {
	sub := &subscription{fn: fn}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := w.fs.Add(filepath.Dir(abs)); err != nil {
			return err
		}
		w.subs[abs] = append(w.subs[abs], sub)
		w.logger.Debug("watching file", "path", abs)
	}
	return nil
}

// Close stops the watcher and pending callbacks. It is safe to call more
// than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, subs := range w.subs {
		for _, s := range subs {
			if s.timer != nil {
				s.timer.Stop()
			}
		}
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.fire(ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) fire(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for _, s := range w.subs[abs] {
		w.logger.Debug("watched file changed", "path", abs)
		if w.debounce <= 0 {
			go s.fn()
			continue
		}
		if s.timer == nil {
			s.timer = time.AfterFunc(w.debounce, s.fn)
		} else {
			s.timer.Reset(w.debounce)
		}
	}
}

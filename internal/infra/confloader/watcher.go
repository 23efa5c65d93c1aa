package confloader

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event for a file
// before its callbacks run.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches configuration files for changes. A burst of events for
// one file, such as an editor truncating and then writing it, results in
// a single callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.RWMutex
	callbacks []func(string)
	files     map[string]struct{}
	dirs      map[string]struct{}
	pending   map[string]*time.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the quiet period. Zero runs callbacks on every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds a file to watch. Its directory is watched so that editors
// that replace the file by rename are noticed.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Error("failed to watch directory", "path", dir, "error", err)
			return err
		}
		w.dirs[dir] = struct{}{}
	}
	w.files[path] = struct{}{}
	w.logger.Debug("watching file for changes", "path", path)
	return nil
}

// OnChange registers a callback to be called when a watched file changes.
// The callback receives the path of the changed file.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start watches for changes until Stop is called.
func (w *Watcher) Start() {
	w.logger.Debug("configuration watcher started")

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.isWatched(event.Name) {
				continue
			}
			w.logger.Debug("configuration file changed", "file", event.Name, "op", event.Op.String())
			w.schedule(filepath.Clean(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if err = w.watcher.Close(); err != nil {
			w.logger.Error("failed to close watcher", "error", err)
			return
		}
		w.logger.Debug("configuration watcher stopped")
	})
	return err
}

func (w *Watcher) isWatched(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[filepath.Clean(name)]
	return ok
}

// schedule runs the callbacks for path once no event has arrived for it
// during the debounce period.
func (w *Watcher) schedule(path string) {
	if w.debounce <= 0 {
		w.notifyCallbacks(path)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.notifyCallbacks(path)
	})
}

func (w *Watcher) notifyCallbacks(path string) {
	w.mu.RLock()
	cbs := make([]func(string), len(w.callbacks))
	copy(cbs, w.callbacks)
	w.mu.RUnlock()

	for _, cb := range cbs {
		cb(path)
	}
}

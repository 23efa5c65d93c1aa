package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps a client certificate in memory and reloads it when the
// files change on disk.
type Watcher struct {
	certFile string
	keyFile  string
	logger   *slog.Logger

	mu   sync.RWMutex
	cert *tls.Certificate

	done     chan struct{}
	stopOnce sync.Once

	debounce   time.Duration
	lastReload time.Time
	reloadMu   sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the minimum interval between reloads.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher loads the key pair and returns a watcher for it.
func NewWatcher(certFile, keyFile string, opts ...WatcherOption) (*Watcher, error) {
	if certFile == "" || keyFile == "" {
		return nil, ErrIncompleteKeyPair
	}

	w := &Watcher{
		certFile: certFile,
		keyFile:  keyFile,
		done:     make(chan struct{}),
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return w, nil
}

// Apply makes cfg present the watched certificate during handshakes.
func (w *Watcher) Apply(cfg *tls.Config) {
	cfg.Certificates = nil
	cfg.GetClientCertificate = w.GetClientCertificate
}

// Start watches the certificate directories until Stop is called.
// Directories are watched instead of files so editor renames are seen.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer watcher.Close()

	certDir := filepath.Dir(w.certFile)
	keyDir := filepath.Dir(w.keyFile)
	if err := watcher.Add(certDir); err != nil {
		return fmt.Errorf("tlsroots: watch cert dir %s: %w", certDir, err)
	}
	if keyDir != certDir {
		if err := watcher.Add(keyDir); err != nil {
			return fmt.Errorf("tlsroots: watch key dir %s: %w", keyDir, err)
		}
	}

	w.logger.Debug("client certificate watcher started",
		"cert_file", w.certFile,
		"key_file", w.keyFile,
	)

	certBase := filepath.Base(w.certFile)
	keyBase := filepath.Base(w.keyFile)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			base := filepath.Base(event.Name)
			if base != certBase && base != keyBase {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.debouncedReload(); err != nil {
				w.logger.Error("client certificate reload failed",
					"error", err,
					"cert_file", w.certFile,
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("client certificate watcher error", "error", err)

		case <-w.done:
			return nil
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("client certificate watcher stopped", "error", err)
		}
	}()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (w *Watcher) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cert, nil
}

func (w *Watcher) debouncedReload() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	now := time.Now()
	if now.Sub(w.lastReload) < w.debounce {
		return nil
	}
	w.lastReload = now

	// Let the writer finish both files.
	time.Sleep(100 * time.Millisecond)

	return w.reload()
}

func (w *Watcher) reload() error {
	cert, err := tls.LoadX509KeyPair(w.certFile, w.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}

	w.mu.Lock()
	w.cert = &cert
	w.mu.Unlock()

	w.logger.Info("client certificate loaded", "cert_file", w.certFile)
	return nil
}

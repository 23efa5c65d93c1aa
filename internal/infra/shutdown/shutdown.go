package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	signals []os.Signal

	mu    sync.Mutex
	hooks []func(context.Context) error

	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
}

// Option configures a Handler.
type Option func(*Handler)

// WithSignals replaces the signals that start shutdown.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) {
		h.signals = sigs
	}
}

// NewHandler creates a shutdown handler whose hooks share timeout.
func NewHandler(timeout time.Duration, opts ...Option) *Handler {
	h := &Handler{
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		hooks:   make([]func(context.Context) error, 0),
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Trigger starts shutdown without a signal, for example when the server
// closes a subscription connection. It is safe to call more than once.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Wait blocks until a signal arrives, Trigger is called or ctx is done,
// then runs the hooks. It returns the joined hook errors.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-h.trigger:
	case <-ctx.Done():
	}

	hookCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]func(context.Context) error, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](hookCtx); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

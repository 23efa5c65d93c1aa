package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const readChunkSize = 32 * 1024

// closedCh is returned by Ready when the caller should poll immediately.
var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type dialFunc func(ctx context.Context) (net.Conn, error)

// socket is the state shared by every variant: the net.Conn, the read
// buffer filled by the reader goroutine, and the readiness broadcast.
type socket struct {
	id     string
	kind   Kind
	host   string
	port   int
	logger *slog.Logger
	dial   dialFunc

	mu       sync.Mutex
	nc       net.Conn
	buf      []byte
	readErr  error
	ready    chan struct{}
	readDone chan struct{}
	dbIndex  int
	timeout  time.Duration
}

func newSocket(kind Kind, host string, port int, logger *slog.Logger) *socket {
	id := ulid.Make().String()
	return &socket{
		id:      id,
		kind:    kind,
		host:    host,
		port:    port,
		logger:  logger.With("conn_id", id, "kind", kind.String()),
		ready:   make(chan struct{}),
		timeout: DefaultTimeout,
	}
}

func (s *socket) ID() string   { return s.id }
func (s *socket) Kind() Kind   { return s.kind }
func (s *socket) Host() string { return s.host }
func (s *socket) Port() int    { return s.port }

func (s *socket) DBIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbIndex
}

func (s *socket) SetDBIndex(index int) {
	s.mu.Lock()
	s.dbIndex = index
	s.mu.Unlock()
}

func (s *socket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nc != nil && s.readErr == nil
}

func (s *socket) address() string {
	if s.kind == KindLocal {
		return s.host
	}
	return net.JoinHostPort(s.host, fmt.Sprint(s.port))
}

func (s *socket) validate() error {
	if s.host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidAddress)
	}
	if s.kind != KindLocal && (s.port <= 0 || s.port > 65535) {
		return fmt.Errorf("%w: port %d", ErrInvalidAddress, s.port)
	}
	return nil
}

func (s *socket) Connect(timeout time.Duration) error {
	if s.IsConnected() {
		return nil
	}
	if err := s.validate(); err != nil {
		return err
	}

	// A socket whose peer went away is still held; release it first.
	s.close()

	timeout = normalizeTimeout(timeout)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	nc, err := s.dial(ctx)
	if err != nil {
		s.logger.Debug("connect failed", "addr", s.address(), "error", err)
		return fmt.Errorf("connection: dial %s: %w", s.address(), err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.nc = nc
	s.buf = nil
	s.readErr = nil
	s.readDone = done
	s.timeout = timeout
	s.broadcastLocked()
	s.mu.Unlock()

	go s.readLoop(nc, done)

	s.logger.Debug("connected", "addr", s.address())
	return nil
}

func (s *socket) Reconnect(timeout time.Duration) error {
	s.close()
	return s.Connect(timeout)
}

func (s *socket) Disconnect() {
	if s.close() {
		s.logger.Debug("disconnected", "addr", s.address())
	}
}

// close tears down the current net.Conn and waits for its reader to exit.
// It reports whether there was anything to close.
func (s *socket) close() bool {
	s.mu.Lock()
	nc, done := s.nc, s.readDone
	s.nc = nil
	s.readDone = nil
	s.buf = nil
	s.readErr = nil
	s.broadcastLocked()
	s.mu.Unlock()

	if nc == nil {
		return false
	}
	_ = nc.Close()
	<-done
	return true
}

func (s *socket) readLoop(nc net.Conn, done chan struct{}) {
	defer close(done)

	chunk := make([]byte, readChunkSize)
	for {
		n, err := nc.Read(chunk)

		s.mu.Lock()
		current := s.nc == nc
		if current {
			if n > 0 {
				s.buf = append(s.buf, chunk[:n]...)
			}
			if err != nil {
				s.readErr = err
			}
			s.broadcastLocked()
		}
		s.mu.Unlock()

		if err != nil {
			if current && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read failed", "error", err)
			} else if current {
				s.logger.Debug("peer closed connection")
			}
			return
		}
	}
}

// broadcastLocked wakes every goroutine waiting on the current ready
// channel. s.mu must be held.
func (s *socket) broadcastLocked() {
	close(s.ready)
	s.ready = make(chan struct{})
}

func (s *socket) BytesAvailable() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.buf))
}

func (s *socket) Write(p []byte) (int, error) {
	s.mu.Lock()
	nc, timeout := s.nc, s.timeout
	failed := s.readErr
	s.mu.Unlock()

	if nc == nil {
		return 0, ErrNotConnected
	}
	if failed != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotConnected, failed)
	}

	_ = nc.SetWriteDeadline(time.Now().Add(timeout))
	n, err := nc.Write(p)
	if err != nil {
		return n, fmt.Errorf("connection: write: %w", err)
	}
	return n, nil
}

func (s *socket) Read() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = nil
	return out
}

func (s *socket) Unread(p []byte) {
	if len(p) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nc == nil {
		return
	}
	merged := make([]byte, 0, len(p)+len(s.buf))
	merged = append(merged, p...)
	s.buf = append(merged, s.buf...)
	s.broadcastLocked()
}

func (s *socket) WaitForData(timeout time.Duration) bool {
	timer := time.NewTimer(normalizeTimeout(timeout))
	defer timer.Stop()

	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			s.mu.Unlock()
			return true
		}
		if s.nc == nil || s.readErr != nil {
			s.mu.Unlock()
			return false
		}
		ch := s.ready
		s.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return false
		}
	}
}

func (s *socket) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) > 0 || s.nc == nil || s.readErr != nil {
		return closedCh
	}
	return s.ready
}

package connection

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTimeout applies when a caller passes a non-positive timeout.
const DefaultTimeout = 30 * time.Second

// DefaultKeepAlive is the TCP keep-alive period for Stream and Secure.
const DefaultKeepAlive = 30 * time.Second

var (
	// ErrInvalidAddress means the host is empty, the port is zero or the
	// socket path is empty.
	ErrInvalidAddress = errors.New("connection: invalid address")

	// ErrNotConnected is returned by Write on a closed connection.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrUnknownKind is returned by New and ParseKind for unknown variants.
	ErrUnknownKind = errors.New("connection: unknown kind")
)

// Kind identifies a connection variant.
type Kind int

const (
	// KindStream is a plain TCP connection.
	KindStream Kind = iota + 1
	// KindSecure is a TLS connection over TCP.
	KindSecure
	// KindLocal is a unix domain socket connection.
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindStream:
		return "stream"
	case KindSecure:
		return "secure"
	case KindLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ParseKind accepts the variant names plus the usual aliases
// ("tcp", "tls", "ssl", "unix").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stream", "tcp", "":
		return KindStream, nil
	case "secure", "tls", "ssl":
		return KindSecure, nil
	case "local", "unix", "socket":
		return KindLocal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Conn is a connection to one Redis server.
//
// Conn implementations are safe for concurrent use, but the byte stream is
// not framed: callers that share a Conn must serialize their
// write/wait/read cycles.
type Conn interface {
	// ID is a unique identifier used in logs.
	ID() string
	Kind() Kind
	// Host is the server host, or the socket path for Local.
	Host() string
	// Port is the server port, always 0 for Local.
	Port() int

	// DBIndex is the logical database selected on this connection.
	DBIndex() int
	SetDBIndex(index int)

	// Connect opens the connection. It is a no-op when already connected.
	Connect(timeout time.Duration) error
	// Reconnect closes any open socket and connects again.
	Reconnect(timeout time.Duration) error
	// Disconnect closes the socket and discards buffered bytes.
	Disconnect()
	IsConnected() bool

	// BytesAvailable is the number of buffered, unread bytes.
	BytesAvailable() int64
	Write(p []byte) (int, error)
	// Read drains and returns every buffered byte; nil if none.
	Read() []byte
	// Unread puts p back in front of the buffer.
	Unread(p []byte)
	// WaitForData blocks until bytes are buffered or the timeout elapses.
	// It returns false on timeout and when the connection is closed with
	// nothing buffered.
	WaitForData(timeout time.Duration) bool
	// Ready returns a channel closed once bytes are buffered or the
	// connection state changes. Poll Read after it fires.
	Ready() <-chan struct{}
}

// Option configures a connection.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	keepAlive time.Duration
	tls       TLSOptions
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeepAlive overrides the TCP keep-alive period. A negative value
// disables keep-alive.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) {
		o.keepAlive = d
	}
}

// WithTLS sets the TLS options used by Secure connections.
func WithTLS(tlsOpts TLSOptions) Option {
	return func(o *options) {
		o.tls = tlsOpts
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    slog.Default(),
		keepAlive: DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates an unconnected Conn of the given kind. For KindLocal, host
// is the socket path and port is ignored.
func New(kind Kind, host string, port int, opts ...Option) (Conn, error) {
	switch kind {
	case KindStream:
		return NewStream(host, port, opts...), nil
	case KindSecure:
		return NewSecure(host, port, opts...), nil
	case KindLocal:
		return NewLocal(host, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

func normalizeTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

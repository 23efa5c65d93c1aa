package transporter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/resp"
)

// DefaultTimeout is used until a positive timeout is passed to Connect,
// Reconnect or Subscribe.
const DefaultTimeout = connection.DefaultTimeout

var (
	// ErrNotInitialized is returned before Init and after Clear.
	ErrNotInitialized = errors.New("transporter: not initialized")

	// ErrAlreadyInitialized is returned by Init until Clear is called.
	ErrAlreadyInitialized = errors.New("transporter: already initialized")

	// ErrEmptyCommand is returned for a command without arguments.
	ErrEmptyCommand = errors.New("transporter: empty command")

	// ErrNotConnected is returned when the connection carrying a command
	// is closed, before or during the command.
	ErrNotConnected = errors.New("transporter: not connected")

	// ErrNotSubscribed is returned by the channel command path in
	// SeparateConnection mode before Subscribe has been called.
	ErrNotSubscribed = errors.New("transporter: not subscribed")

	// ErrTimeout is returned when no complete reply arrives in time. The
	// connection that carried the command is closed because a late reply
	// would otherwise be read as the answer to the next command.
	ErrTimeout = errors.New("transporter: timeout waiting for reply")
)

// ChannelMode selects the connection that carries subscriptions.
type ChannelMode int

const (
	// CurrentConnection subscribes on the primary connection.
	CurrentConnection ChannelMode = iota
	// SeparateConnection opens a dedicated connection on first Subscribe.
	SeparateConnection
)

func (m ChannelMode) String() string {
	switch m {
	case CurrentConnection:
		return "current"
	case SeparateConnection:
		return "separate"
	default:
		return "unknown"
	}
}

// ParseChannelMode parses "current" or "separate". The empty string is
// CurrentConnection.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current", "":
		return CurrentConnection, nil
	case "separate":
		return SeparateConnection, nil
	default:
		return 0, fmt.Errorf("transporter: unknown channel mode %q", s)
	}
}

// Dialer creates an unconnected connection.
type Dialer func(kind connection.Kind, host string, port int) (connection.Conn, error)

// Handshake runs on every connection the Transporter opens, right after the
// transport connects and before any other command. send carries a command
// on that connection only. An error closes the connection.
type Handshake func(send func(args ...any) (resp.Reply, error)) error

// Option configures a Transporter.
type Option func(*Transporter)

// WithLogger sets the logger. It is also passed to connections created by
// the default dialer.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transporter) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(t *Transporter) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithMessageHandler sets the receiver of pushed messages.
func WithMessageHandler(h MessageHandler) Option {
	return func(t *Transporter) {
		if h != nil {
			t.handler = h
		}
	}
}

// WithTLS sets the TLS options of Secure connections created by the
// default dialer.
func WithTLS(opts connection.TLSOptions) Option {
	return func(t *Transporter) {
		t.tlsOpts = opts
	}
}

// WithDialer replaces connection.New.
func WithDialer(d Dialer) Option {
	return func(t *Transporter) {
		if d != nil {
			t.dial = d
		}
	}
}

// WithHandshake sets the commands run on each newly opened connection,
// typically AUTH and SELECT.
func WithHandshake(h Handshake) Option {
	return func(t *Transporter) {
		t.handshake = h
	}
}

// Transporter sends commands to one Redis server and dispatches pub/sub
// pushes. It is safe for concurrent use.
type Transporter struct {
	mode      ChannelMode
	logger    *slog.Logger
	metrics   Metrics
	handler   MessageHandler
	tlsOpts   connection.TLSOptions
	dial      Dialer
	handshake Handshake
	queue     *eventQueue

	mu          sync.Mutex
	initialized bool
	kind        connection.Kind
	host        string
	port        int
	timeout     time.Duration
	primary     connection.Conn
	secondary   connection.Conn
	subscribed  bool
	disp        *dispatcher

	// pushMu serializes reads on the subscription connection, so the push
	// loop never waits behind a command blocked on the primary. Lock order
	// is mu, then pushMu.
	pushMu sync.Mutex
	// pushBuf holds the undecoded tail of push data read from the
	// subscription connection. Guarded by pushMu.
	pushBuf []byte
}

// New creates an uninitialized Transporter.
func New(mode ChannelMode, opts ...Option) *Transporter {
	t := &Transporter{
		mode:    mode,
		logger:  slog.Default(),
		metrics: nopMetrics{},
		handler: nopHandler{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.dial == nil {
		t.dial = t.defaultDial
	}
	t.queue = newEventQueue(t.handler)
	return t
}

func (t *Transporter) defaultDial(kind connection.Kind, host string, port int) (connection.Conn, error) {
	return connection.New(kind, host, port,
		connection.WithLogger(t.logger),
		connection.WithTLS(t.tlsOpts),
	)
}

// Init creates the primary connection without connecting it.
func (t *Transporter) Init(kind connection.Kind, host string, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return ErrAlreadyInitialized
	}
	conn, err := t.dial(kind, host, port)
	if err != nil {
		return fmt.Errorf("transporter: init: %w", err)
	}

	t.kind = kind
	t.host = host
	t.port = port
	t.primary = conn
	t.initialized = true

	t.logger.Info("transporter initialized",
		"kind", kind.String(),
		"host", host,
		"port", port,
		"channel_mode", t.mode.String(),
		"conn_id", conn.ID(),
	)
	return nil
}

// Clear closes every connection and returns to the uninitialized state.
// Pushed messages not yet delivered are dropped.
func (t *Transporter) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopDispatchLocked()
	t.queue.reset()

	if t.primary != nil {
		t.primary.Disconnect()
	}
	if t.secondary != nil {
		t.secondary.Disconnect()
	}

	t.initialized = false
	t.kind = 0
	t.host = ""
	t.port = 0
	t.timeout = DefaultTimeout
	t.primary = nil
	t.secondary = nil
	t.subscribed = false
}

// Connect connects the primary connection. It is a no-op when already
// connected. A positive timeout becomes the default for later waits.
func (t *Transporter) Connect(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	t.setTimeoutLocked(timeout)
	if t.primary.IsConnected() {
		return nil
	}

	if t.subscribed && t.mode == CurrentConnection {
		t.stopDispatchLocked()
	}
	t.primary.SetDBIndex(0)
	if err := t.connectLocked(t.primary, false); err != nil {
		return err
	}
	if t.subscribed && t.mode == CurrentConnection {
		t.startDispatchLocked()
	}
	return nil
}

// Reconnect closes and reopens the primary connection and, when it exists,
// the subscription connection. Server-side subscriptions do not survive a
// reconnect; callers resubscribe.
func (t *Transporter) Reconnect(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	t.setTimeoutLocked(timeout)
	t.stopDispatchLocked()

	t.primary.SetDBIndex(0)
	errPrimary := t.connectLocked(t.primary, true)

	var errSecondary error
	if t.secondary != nil {
		t.secondary.SetDBIndex(0)
		errSecondary = t.connectLocked(t.secondary, true)
	}

	if t.subscribed {
		t.startDispatchLocked()
	}
	return errors.Join(errPrimary, errSecondary)
}

// connectLocked connects or reconnects conn and records the outcome.
func (t *Transporter) connectLocked(conn connection.Conn, reconnect bool) error {
	op := "connect"
	var err error
	if reconnect {
		op = "reconnect"
		err = conn.Reconnect(t.timeout)
	} else {
		err = conn.Connect(t.timeout)
	}

	if err == nil && t.handshake != nil {
		if err = t.handshakeLocked(conn); err != nil {
			conn.Disconnect()
			conn.SetDBIndex(0)
		}
	}

	if err != nil {
		t.metrics.IncConnect(ResultError)
		t.logger.Warn(op+" failed", "conn_id", conn.ID(), "host", t.host, "port", t.port, "error", err)
		return fmt.Errorf("transporter: %s: %w", op, err)
	}
	t.metrics.IncConnect(ResultOK)
	t.logger.Info(op+"ed", "conn_id", conn.ID(), "host", t.host, "port", t.port)
	return nil
}

// handshakeLocked runs the handshake on a connection nothing else reads yet.
func (t *Transporter) handshakeLocked(conn connection.Conn) error {
	return t.handshake(func(args ...any) (resp.Reply, error) {
		if len(args) == 0 {
			return resp.Reply{}, ErrEmptyCommand
		}
		if err := resp.Validate(args...); err != nil {
			return resp.Reply{}, fmt.Errorf("transporter: %w", err)
		}
		replies, err := t.roundTripLocked(conn, false, 1, args)
		if err != nil {
			return resp.Reply{}, err
		}
		selectDB(conn, args, replies[0])
		return replies[0], nil
	})
}

// Disconnect closes the primary connection. In CurrentConnection mode it
// also ends the subscription, since the primary carries it.
func (t *Transporter) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return
	}
	t.primary.Disconnect()
	t.primary.SetDBIndex(0)

	if t.mode == CurrentConnection && t.subscribed {
		t.stopDispatchLocked()
		t.subscribed = false
	}
	t.logger.Info("disconnected", "conn_id", t.primary.ID())
}

// Subscribe prepares the subscription connection and starts push
// dispatch. It does not send SUBSCRIBE; use SendChannelCommand for that.
//
// In CurrentConnection mode the primary must be connected. In
// SeparateConnection mode the secondary connection is created on first
// use and connected if needed. Subscribe is idempotent.
func (t *Transporter) Subscribe(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	t.setTimeoutLocked(timeout)

	switch t.mode {
	case SeparateConnection:
		if t.secondary == nil {
			conn, err := t.dial(t.kind, t.host, t.port)
			if err != nil {
				return fmt.Errorf("transporter: subscribe: %w", err)
			}
			t.secondary = conn
		}
		if !t.secondary.IsConnected() {
			t.stopDispatchLocked()
			t.secondary.SetDBIndex(0)
			if err := t.connectLocked(t.secondary, false); err != nil {
				return err
			}
		}
	default:
		if !t.primary.IsConnected() {
			return ErrNotConnected
		}
	}

	if !t.subscribed {
		t.stopDispatchLocked()
		t.subscribed = true
		t.logger.Info("subscribed",
			"channel_mode", t.mode.String(),
			"conn_id", t.pushConnLocked().ID(),
		)
	}
	t.startDispatchLocked()
	return nil
}

// Unsubscribe stops push dispatch and closes the subscription connection
// in SeparateConnection mode. The primary connection is left untouched; in
// CurrentConnection mode send UNSUBSCRIBE before calling it.
func (t *Transporter) Unsubscribe() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return
	}
	t.stopDispatchLocked()
	wasSubscribed := t.subscribed
	t.subscribed = false

	if t.secondary != nil {
		t.secondary.Disconnect()
		t.secondary.SetDBIndex(0)
	}
	if wasSubscribed {
		t.logger.Info("unsubscribed", "channel_mode", t.mode.String())
	}
}

func (t *Transporter) setTimeoutLocked(timeout time.Duration) {
	if timeout > 0 {
		t.timeout = timeout
	}
}

// pushConnLocked returns the connection that carries subscriptions, or nil.
func (t *Transporter) pushConnLocked() connection.Conn {
	if t.mode == SeparateConnection {
		return t.secondary
	}
	return t.primary
}

// IsInit reports whether Init succeeded and Clear has not been called.
func (t *Transporter) IsInit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized
}

// IsConnected reports whether the primary connection is open.
func (t *Transporter) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialized && t.primary.IsConnected()
}

// IsSubscribed reports whether push dispatch is active.
func (t *Transporter) IsSubscribed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.subscribed
}

// SelectedDB returns the database selected on the primary connection, or
// -1 when not initialized.
func (t *Transporter) SelectedDB() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return -1
	}
	return t.primary.DBIndex()
}

// SubscriptionDB returns the database selected on the subscription
// connection, or -1 when there is none.
func (t *Transporter) SubscriptionDB() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return -1
	}
	conn := t.pushConnLocked()
	if conn == nil {
		return -1
	}
	return conn.DBIndex()
}

func (t *Transporter) Kind() connection.Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind
}

func (t *Transporter) ChannelMode() ChannelMode {
	return t.mode
}

func (t *Transporter) Host() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.host
}

func (t *Transporter) Port() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port
}

// Timeout returns the current default wait timeout.
func (t *Transporter) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/pubsub"
	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

var (
	// ErrUnexpectedReply means the server answered with a reply of the
	// wrong type or value.
	ErrUnexpectedReply = errors.New("client: unexpected reply")

	// ErrInvalidArgument is returned for arguments rejected before any I/O.
	ErrInvalidArgument = errors.New("client: invalid argument")
)

// Options configures a Client.
type Options struct {
	Kind connection.Kind
	// Host is the server host, or the socket path for KindLocal.
	Host string
	Port int

	Username string
	Password string
	DB       int

	ChannelMode transporter.ChannelMode
	Timeout     time.Duration
	TLS         connection.TLSOptions

	// SubscriptionBuffer is the channel capacity of each subscription.
	SubscriptionBuffer int

	Logger  *slog.Logger
	Metrics transporter.Metrics
}

// Client runs commands on one Redis server.
type Client struct {
	opts   Options
	tr     *transporter.Transporter
	router *pubsub.Router

	// subMu serializes subscription changes so that router state and
	// server state move together.
	subMu sync.Mutex
}

// New creates an unconnected Client.
func New(opts Options) (*Client, error) {
	if opts.Kind == 0 {
		opts.Kind = connection.KindStream
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DB < 0 {
		return nil, fmt.Errorf("%w: db %d", ErrInvalidArgument, opts.DB)
	}

	c := &Client{opts: opts}
	c.router = pubsub.NewRouter(
		pubsub.WithBufferSize(opts.SubscriptionBuffer),
		pubsub.WithLogger(opts.Logger),
	)
	c.tr = transporter.New(opts.ChannelMode,
		transporter.WithLogger(opts.Logger),
		transporter.WithMetrics(opts.Metrics),
		transporter.WithTLS(opts.TLS),
		transporter.WithMessageHandler(c.router),
		transporter.WithHandshake(c.handshake),
	)
	if err := c.tr.Init(opts.Kind, opts.Host, opts.Port); err != nil {
		return nil, err
	}
	return c, nil
}

// Dial creates a Client and connects it.
func Dial(opts Options) (*Client, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Connect connects, authenticates and selects the configured database.
func (c *Client) Connect() error {
	return c.tr.Connect(c.opts.Timeout)
}

// Reconnect reconnects every connection and repeats AUTH and SELECT on
// each. Subscriptions are not restored.
func (c *Client) Reconnect() error {
	return c.tr.Reconnect(c.opts.Timeout)
}

// handshake authenticates and selects the configured database on every
// connection the transporter opens, the subscription connection included.
func (c *Client) handshake(send func(args ...any) (resp.Reply, error)) error {
	if c.opts.Password != "" {
		args := []any{"AUTH", c.opts.Password}
		if c.opts.Username != "" {
			args = []any{"AUTH", c.opts.Username, c.opts.Password}
		}
		if err := expectOK(send(args...)); err != nil {
			return err
		}
	}
	if c.opts.DB > 0 {
		if err := expectOK(send("SELECT", strconv.Itoa(c.opts.DB))); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every connection. The Client cannot be used afterwards.
func (c *Client) Close() {
	c.tr.Clear()
}

// Transporter returns the underlying transporter.
func (c *Client) Transporter() *transporter.Transporter {
	return c.tr
}

// Router returns the pub/sub router fed by the transporter.
func (c *Client) Router() *pubsub.Router {
	return c.router
}

// IsConnected reports whether the primary connection is open.
func (c *Client) IsConnected() bool {
	return c.tr.IsConnected()
}

// SelectedDB returns the selected database, or -1 when not connected.
func (c *Client) SelectedDB() int {
	if !c.tr.IsConnected() {
		return -1
	}
	return c.tr.SelectedDB()
}

// Do sends one command and returns its reply. Server errors are returned
// as replies, not as errors.
func (c *Client) Do(args ...any) (resp.Reply, error) {
	return c.tr.SendCommand(args...)
}

// call is Do with server errors turned into Go errors.
func (c *Client) call(args ...any) (resp.Reply, error) {
	r, err := c.tr.SendCommand(args...)
	if err != nil {
		return resp.Reply{}, err
	}
	if err := r.Err(); err != nil {
		return r, err
	}
	return r, nil
}

// callOK expects the status reply "OK".
func (c *Client) callOK(args ...any) error {
	return expectOK(c.tr.SendCommand(args...))
}

func expectOK(r resp.Reply, err error) error {
	if err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}
	if !r.IsOK() {
		return unexpected(r)
	}
	return nil
}

func unexpected(r resp.Reply) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedReply, r)
}

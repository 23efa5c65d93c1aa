package redistest

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/rediswire/internal/infra/tlsroots"
	"github.com/yndnr/rediswire/pkg/resp"
)

// HandlerFunc serves one command. args[0] is the command name as sent.
// The returned replies are written in order; returning none leaves the
// client waiting.
type HandlerFunc func(c *Conn, args []string) []resp.Reply

// Option configures a Server.
type Option func(*Server)

// WithTLS serves TLS with an in-memory self-signed certificate.
func WithTLS() Option {
	return func(s *Server) { s.network = "tls" }
}

// WithUnix serves on a unix socket in a temporary directory.
func WithUnix() Option {
	return func(s *Server) { s.network = "unix" }
}

// WithPassword requires AUTH before any other command.
func WithPassword(password string) Option {
	return func(s *Server) { s.password = password }
}

// WithLogger sets the server logger. Tests default to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// Server is an in-process RESP server.
type Server struct {
	network  string
	password string
	logger   *slog.Logger

	ln      net.Listener
	sockDir string
	certPEM []byte

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	conns    map[*Conn]struct{}
	requests [][]string
	dbs      map[int]map[string]string

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Start starts a server and registers its shutdown with t.Cleanup.
func Start(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s, err := NewServer(opts...)
	if err != nil {
		t.Fatalf("redistest: start server: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// NewServer starts a server. The caller must Close it.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		network:  "tcp",
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[*Conn]struct{}),
		dbs:      make(map[int]map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	ln, err := s.listen()
	if err != nil {
		return nil, err
	}
	s.ln = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return s, nil
}

func (s *Server) listen() (net.Listener, error) {
	switch s.network {
	case "unix":
		// Keep the path short; sun_path is limited to ~104 bytes.
		dir, err := os.MkdirTemp("", "rw")
		if err != nil {
			return nil, err
		}
		s.sockDir = dir
		return net.Listen("unix", filepath.Join(dir, "redis.sock"))
	case "tls":
		cert, certPEM, err := selfSignedCert()
		if err != nil {
			return nil, err
		}
		s.certPEM = certPEM
		return tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	default:
		return net.Listen("tcp", "127.0.0.1:0")
	}
}

// Addr returns the listen address (host:port or socket path).
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Host returns the listen host, or the socket path for unix servers.
func (s *Server) Host() string {
	if s.network == "unix" {
		return s.ln.Addr().String()
	}
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listen port, 0 for unix servers.
func (s *Server) Port() int {
	if s.network == "unix" {
		return 0
	}
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// CertPEM returns the server certificate of a TLS server.
func (s *Server) CertPEM() []byte {
	return s.certPEM
}

// ClientTLSConfig returns a client config trusting the server certificate.
func (s *Server) ClientTLSConfig() *tls.Config {
	pool := tlsroots.NewEmptyPool()
	if err := pool.AddCertPEM(s.certPEM); err != nil {
		return nil
	}
	return pool.ClientConfig("", false)
}

// Handle overrides a command. The name is case-insensitive.
func (s *Server) Handle(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToUpper(name)] = fn
}

// Requests returns every command received so far, in arrival order.
func (s *Server) Requests() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many received commands are named name.
func (s *Server) CountRequests(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if strings.EqualFold(req[0], name) {
			n++
		}
	}
	return n
}

// ConnCount returns the number of open client connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push writes r to every connected client and returns how many got it.
func (s *Server) Push(r resp.Reply) int {
	return s.PushRaw(resp.AppendReply(nil, r))
}

// PushRaw writes raw bytes to every connected client.
func (s *Server) PushRaw(frame []byte) int {
	n := 0
	for _, c := range s.snapshotConns() {
		if c.WriteRaw(frame) == nil {
			n++
		}
	}
	return n
}

// Publish delivers a message the way PUBLISH does and returns the number
// of receivers.
func (s *Server) Publish(channel, payload string) int {
	n := 0
	for _, c := range s.snapshotConns() {
		if c.subscribed(kindChannel, channel) {
			if c.Write(resp.Array(resp.BulkString("message"), resp.BulkString(channel), resp.BulkString(payload))) == nil {
				n++
			}
		}
		for _, pattern := range c.matchingPatterns(channel) {
			if c.Write(resp.Array(resp.BulkString("pmessage"), resp.BulkString(pattern),
				resp.BulkString(channel), resp.BulkString(payload))) == nil {
				n++
			}
		}
	}
	return n
}

// SPublish delivers a shard message the way SPUBLISH does.
func (s *Server) SPublish(shardChannel, payload string) int {
	n := 0
	for _, c := range s.snapshotConns() {
		if c.subscribed(kindShard, shardChannel) {
			if c.Write(resp.Array(resp.BulkString("smessage"), resp.BulkString(shardChannel), resp.BulkString(payload))) == nil {
				n++
			}
		}
	}
	return n
}

// DropClients closes every client connection but keeps listening.
func (s *Server) DropClients() {
	for _, c := range s.snapshotConns() {
		c.Close()
	}
}

// Close stops the listener, closes every client and waits for handlers.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.ln.Close()
	s.DropClients()
	s.wg.Wait()
	if s.sockDir != "" {
		_ = os.RemoveAll(s.sockDir)
	}
}

func (s *Server) snapshotConns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) acceptLoop() {
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept failed", "error", err)
			return
		}

		c := newConn(nc, s.password == "")
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, c)
				s.mu.Unlock()
				c.Close()
			}()
			s.serveConn(c)
		}()
	}
}

func (s *Server) serveConn(c *Conn) {
	br := bufio.NewReader(c.nc)
	for {
		raw, err := resp.ReadCommand(br)
		if err != nil {
			if errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrLimitExceeded) {
				s.logger.Warn("bad request", "remote", c.nc.RemoteAddr(), "error", err)
				_ = c.Write(resp.Error("ERR Protocol error: " + err.Error()))
			}
			return
		}
		if len(raw) == 0 {
			continue
		}

		args := make([]string, len(raw))
		for i, a := range raw {
			args[i] = string(a)
		}
		name := strings.ToUpper(args[0])

		s.mu.Lock()
		s.requests = append(s.requests, args)
		fn := s.handlers[name]
		s.mu.Unlock()

		if fn == nil {
			fn = s.builtin(name)
		}
		replies := fn(c, args)
		if err := c.Write(replies...); err != nil {
			return
		}
		if name == "QUIT" {
			return
		}
	}
}

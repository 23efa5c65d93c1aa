package redistest

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"

	"github.com/yndnr/rediswire/pkg/resp"
)

type subKind int

const (
	kindChannel subKind = iota
	kindPattern
	kindShard
)

// Conn is one client connection as seen by the server.
type Conn struct {
	nc net.Conn

	wmu sync.Mutex
	bw  *bufio.Writer

	mu     sync.Mutex
	db     int
	authed bool
	subs   [3]map[string]struct{}

	closed atomic.Bool
}

func newConn(nc net.Conn, authed bool) *Conn {
	c := &Conn{
		nc:     nc,
		bw:     bufio.NewWriter(nc),
		authed: authed,
	}
	for i := range c.subs {
		c.subs[i] = make(map[string]struct{})
	}
	return c
}

// DB returns the database selected on this connection.
func (c *Conn) DB() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

// Write sends replies as one flush.
func (c *Conn) Write(replies ...resp.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	var frame []byte
	for _, r := range replies {
		frame = resp.AppendReply(frame, r)
	}
	return c.WriteRaw(frame)
}

// WriteRaw sends raw bytes.
func (c *Conn) WriteRaw(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.bw.Write(frame); err != nil {
		return err
	}
	return c.bw.Flush()
}

// Close closes the connection.
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.nc.Close()
	}
}

func (c *Conn) subscribed(kind subKind, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[kind][name]
	return ok
}

func (c *Conn) matchingPatterns(channel string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for p := range c.subs[kindPattern] {
		if matchGlob(p, channel) {
			out = append(out, p)
		}
	}
	return out
}

// subscribe adds names and returns one ack per name.
func (c *Conn) subscribe(kind subKind, verb string, names []string) []resp.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]resp.Reply, 0, len(names))
	for _, n := range names {
		c.subs[kind][n] = struct{}{}
		out = append(out, ack(verb, resp.BulkString(n), c.countLocked(kind)))
	}
	return out
}

// unsubscribe removes names (all when names is empty) and returns the acks.
func (c *Conn) unsubscribe(kind subKind, verb string, names []string) []resp.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(names) == 0 {
		for n := range c.subs[kind] {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return []resp.Reply{ack(verb, resp.NilBulk(), c.countLocked(kind))}
	}
	out := make([]resp.Reply, 0, len(names))
	for _, n := range names {
		delete(c.subs[kind], n)
		out = append(out, ack(verb, resp.BulkString(n), c.countLocked(kind)))
	}
	return out
}

// countLocked mirrors Redis: channels and patterns share a counter, shard
// channels have their own.
func (c *Conn) countLocked(kind subKind) int {
	if kind == kindShard {
		return len(c.subs[kindShard])
	}
	return len(c.subs[kindChannel]) + len(c.subs[kindPattern])
}

func ack(verb string, name resp.Reply, count int) resp.Reply {
	return resp.Array(resp.BulkString(verb), name, resp.Integer(int64(count)))
}

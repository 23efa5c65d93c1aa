package transporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/rediswire/internal/telemetry/logger"
	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/resp"
)

// SendCommand sends one command on the primary connection and returns its
// reply. Arguments must be strings or byte slices.
//
// Server error replies are returned as resp.Reply values, not as errors.
func (t *Transporter) SendCommand(args ...any) (resp.Reply, error) {
	replies, err := t.send(PathCommand, 1, args)
	if err != nil {
		return resp.Reply{}, err
	}
	return replies[0], nil
}

// SendCommandAll sends one command on the primary connection and returns
// every reply that arrives with it, for commands that answer with more than
// one reply. It returns once the received bytes decode completely into at
// least one reply.
func (t *Transporter) SendCommandAll(args ...any) ([]resp.Reply, error) {
	return t.send(PathCommand, untilDrained, args)
}

// SendCommandN sends one command on the primary connection and waits for
// exactly n replies.
func (t *Transporter) SendCommandN(n int, args ...any) ([]resp.Reply, error) {
	if n < 1 {
		return nil, fmt.Errorf("transporter: invalid reply count %d", n)
	}
	return t.send(PathCommand, n, args)
}

// SendChannelCommand sends one command on the subscription connection:
// the primary in CurrentConnection mode, the secondary in
// SeparateConnection mode. Pushed messages that arrive ahead of the reply
// are dispatched, not returned.
func (t *Transporter) SendChannelCommand(args ...any) (resp.Reply, error) {
	replies, err := t.send(PathChannel, 1, args)
	if err != nil {
		return resp.Reply{}, err
	}
	return replies[0], nil
}

// SendChannelCommandAll is SendCommandAll on the subscription connection.
func (t *Transporter) SendChannelCommandAll(args ...any) ([]resp.Reply, error) {
	return t.send(PathChannel, untilDrained, args)
}

// SendChannelCommandN is SendCommandN on the subscription connection. A
// SUBSCRIBE or UNSUBSCRIBE naming n channels is answered by n
// acknowledgements.
func (t *Transporter) SendChannelCommandN(n int, args ...any) ([]resp.Reply, error) {
	if n < 1 {
		return nil, fmt.Errorf("transporter: invalid reply count %d", n)
	}
	return t.send(PathChannel, n, args)
}

// untilDrained asks send for every reply that arrives with the first one.
const untilDrained = 0

// send runs one command. want is the number of replies to wait for, or
// untilDrained.
func (t *Transporter) send(path string, want int, args []any) ([]resp.Reply, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return nil, ErrNotInitialized
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	if err := resp.Validate(args...); err != nil {
		return nil, fmt.Errorf("transporter: %w", err)
	}

	conn, err := t.commandConnLocked(path)
	if err != nil {
		return nil, err
	}
	if !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	pushConn := conn == t.pushConnLocked()
	if pushConn {
		t.pushMu.Lock()
		defer t.pushMu.Unlock()
	}
	push := t.subscribed && pushConn

	start := time.Now()
	replies, err := t.roundTripLocked(conn, push, want, args)
	elapsed := time.Since(start)

	t.metrics.ObserveCommand(path, resultOf(replies, err), elapsed)
	if t.logger.Enabled(context.Background(), slog.LevelDebug) {
		t.logger.Debug("command",
			"conn_id", conn.ID(),
			"path", path,
			"args", logger.RedactCommand(argStrings(args)),
			"replies", len(replies),
			"duration", elapsed,
			"error", err,
		)
	}
	if err != nil {
		return nil, err
	}

	selectDB(conn, args, replies[0])
	return replies, nil
}

func (t *Transporter) commandConnLocked(path string) (connection.Conn, error) {
	if path == PathChannel && t.mode == SeparateConnection {
		if t.secondary == nil {
			return nil, ErrNotSubscribed
		}
		return t.secondary, nil
	}
	return t.primary, nil
}

// roundTripLocked writes the command and reads until the reply is complete
// or the timeout, counted from the write, runs out. On the subscription
// connection, pushed messages found among the replies are queued for
// dispatch. Bytes beyond the reply are handed back to conn.
//
// t.mu must be held, and t.pushMu too when push is set.
func (t *Transporter) roundTripLocked(conn connection.Conn, push bool, want int, args []any) ([]resp.Reply, error) {
	var buf []byte
	if push {
		buf = t.pushBuf
		t.pushBuf = nil
		buf = append(buf, t.readLocked(conn)...)
	} else if stale := t.readLocked(conn); len(stale) > 0 {
		t.logger.Warn("discarding unexpected bytes before command", "conn_id", conn.ID(), "bytes", len(stale))
	}

	deadline := time.Now().Add(t.timeout)
	n, err := conn.Write(resp.Encode(args...))
	t.metrics.AddBytesWritten(n)
	if err != nil {
		if errors.Is(err, connection.ErrNotConnected) {
			if push {
				t.pushBuf = buf
			}
			return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		// Part of the frame may be on the wire; the next command would
		// be read as its continuation.
		t.logger.Warn("write failed, closing connection", "conn_id", conn.ID(), "written", n, "error", err)
		conn.Disconnect()
		conn.SetDBIndex(0)
		return nil, fmt.Errorf("transporter: write: %w", err)
	}

	var replies []resp.Reply
	complete := false
	for {
		for len(buf) > 0 {
			r, n, err := resp.Decode(buf)
			if errors.Is(err, resp.ErrIncomplete) {
				break
			}
			if err != nil {
				t.logger.Warn("discarding undecodable reply", "conn_id", conn.ID(), "bytes", len(buf), "error", err)
				return nil, fmt.Errorf("transporter: decode reply: %w", err)
			}
			buf = buf[n:]

			if push {
				if m, ok := classify(r); ok {
					t.enqueueLocked(m)
					continue
				}
			}
			replies = append(replies, r)
			// A server error ends a multi-reply answer early: the server
			// rejected the command as a whole.
			if want != untilDrained && (len(replies) == want || r.IsError()) {
				complete = true
				break
			}
		}
		if complete {
			break
		}
		if want == untilDrained && len(replies) > 0 && len(buf) == 0 {
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 || !conn.WaitForData(remaining) {
			if !conn.IsConnected() {
				return nil, fmt.Errorf("%w: closed while waiting for reply", ErrNotConnected)
			}
			t.logger.Warn("command timed out, closing connection", "conn_id", conn.ID(), "timeout", t.timeout)
			conn.Disconnect()
			conn.SetDBIndex(0)
			return nil, ErrTimeout
		}
		buf = append(buf, t.readLocked(conn)...)
	}

	if len(buf) > 0 {
		conn.Unread(buf)
	}
	return replies, nil
}

func (t *Transporter) readLocked(conn connection.Conn) []byte {
	b := conn.Read()
	if len(b) > 0 {
		t.metrics.AddBytesRead(len(b))
	}
	return b
}

// selectDB records the database chosen by a successful "SELECT n" on the
// connection that carried it.
func selectDB(conn connection.Conn, args []any, reply resp.Reply) {
	if len(args) != 2 || !reply.IsOK() {
		return
	}
	if !strings.EqualFold(argString(args[0]), "SELECT") {
		return
	}
	n, err := strconv.Atoi(argString(args[1]))
	if err != nil {
		return
	}
	conn.SetDBIndex(n)
}

func resultOf(replies []resp.Reply, err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case err != nil:
		return ResultError
	case len(replies) > 0 && replies[0].IsError():
		return ResultServerError
	default:
		return ResultOK
	}
}

func argString(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func argStrings(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = argString(a)
	}
	return out
}

package transporter

import (
	"errors"
	"sync"

	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/resp"
)

// dispatcher is one run of the push read loop on a subscription connection.
type dispatcher struct {
	conn connection.Conn
	stop chan struct{}
	done chan struct{}
}

// startDispatchLocked starts the push loop on the subscription connection
// unless one is already running there.
func (t *Transporter) startDispatchLocked() {
	conn := t.pushConnLocked()
	if conn == nil {
		return
	}
	if d := t.disp; d != nil && d.conn == conn {
		select {
		case <-d.done:
		default:
			return
		}
	}
	t.stopDispatchLocked()

	d := &dispatcher{
		conn: conn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t.disp = d
	go t.dispatch(d)
}

// stopDispatchLocked ends the push loop and drops the undecoded push tail.
// Once it returns no drain is in progress and none will start, so the
// caller may reconnect or close the subscription connection. The loop
// goroutine itself is not waited for.
func (t *Transporter) stopDispatchLocked() {
	t.pushMu.Lock()
	defer t.pushMu.Unlock()

	if t.disp != nil {
		close(t.disp.stop)
		t.disp = nil
	}
	t.pushBuf = nil
}

func (t *Transporter) dispatch(d *dispatcher) {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		case <-d.conn.Ready():
		}
		if !t.drain(d) {
			return
		}
	}
}

// drain decodes the bytes buffered on the subscription connection and
// queues the pushed messages. It reports whether the loop should continue;
// a closed connection ends it until the next connect or subscribe.
//
// drain takes only pushMu: a command blocked on the primary must not hold
// up pushes on the secondary.
func (t *Transporter) drain(d *dispatcher) bool {
	t.pushMu.Lock()
	defer t.pushMu.Unlock()

	select {
	case <-d.stop:
		return false
	default:
	}

	chunk := t.readLocked(d.conn)
	if len(chunk) == 0 {
		return d.conn.IsConnected()
	}

	data := append(t.pushBuf, chunk...)
	replies, n, err := resp.DecodeAll(data)
	for _, r := range replies {
		if m, ok := classify(r); ok {
			t.enqueueLocked(m)
		}
	}

	switch {
	case err == nil:
		t.pushBuf = nil
	case errors.Is(err, resp.ErrIncomplete):
		t.pushBuf = append([]byte(nil), data[n:]...)
	default:
		t.pushBuf = nil
		t.metrics.IncPushDecodeError()
		t.logger.Warn("discarding undecodable push data",
			"conn_id", d.conn.ID(),
			"bytes", len(data)-n,
			"error", err,
		)
	}
	return true
}

// enqueueLocked queues m for delivery. pushMu must be held.
func (t *Transporter) enqueueLocked(m Message) {
	t.metrics.IncPushMessage(m.Kind.String())
	t.queue.push(m)
}

// eventQueue delivers messages to the handler in order. A delivery
// goroutine runs only while messages are pending.
type eventQueue struct {
	handler MessageHandler

	mu      sync.Mutex
	pending []Message
	running bool
}

func newEventQueue(h MessageHandler) *eventQueue {
	return &eventQueue{handler: h}
}

func (q *eventQueue) push(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, m)
	if !q.running {
		q.running = true
		go q.run()
	}
}

// reset drops every message not yet delivered.
func (q *eventQueue) reset() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		m := q.pending[0]
		q.pending[0] = Message{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		deliver(q.handler, m)
	}
}

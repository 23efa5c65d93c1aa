package pubsub

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yndnr/rediswire/pkg/cmap"
	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// DefaultBufferSize is the per-subscription channel capacity.
const DefaultBufferSize = 256

// Option configures a Router.
type Option func(*Router)

// WithBufferSize sets the channel capacity of new subscriptions.
func WithBufferSize(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// WithLogger sets the logger used to report dropped messages.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Router routes pushed messages to subscriptions.
type Router struct {
	bufSize int
	logger  *slog.Logger

	registries [3]*cmap.Map[[]*Subscription]
	nextID     atomic.Uint64
	dropped    atomic.Uint64
}

var _ transporter.MessageHandler = (*Router)(nil)

// NewRouter creates an empty Router.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		bufSize: DefaultBufferSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.registries {
		r.registries[i] = cmap.New[[]*Subscription]()
	}
	return r
}

func (r *Router) registry(kind transporter.MessageKind) *cmap.Map[[]*Subscription] {
	switch kind {
	case transporter.KindPatternMessage:
		return r.registries[1]
	case transporter.KindShardMessage:
		return r.registries[2]
	default:
		return r.registries[0]
	}
}

// Subscribe registers a subscription for names of the given kind:
// channels for KindMessage, patterns for KindPatternMessage, shard
// channels for KindShardMessage. It returns the subscription and the
// names that had no local subscriber before.
func (r *Router) Subscribe(kind transporter.MessageKind, names ...string) (*Subscription, []string) {
	s := &Subscription{
		router: r,
		kind:   kind,
		id:     r.nextID.Add(1),
		names:  dedupe(names),
		ch:     make(chan transporter.Message, r.bufSize),
	}
	s.C = s.ch

	reg := r.registry(kind)
	var added []string
	for _, name := range s.names {
		reg.Compute(name, func(subs []*Subscription, exists bool) ([]*Subscription, bool) {
			if !exists {
				added = append(added, name)
			}
			// Copy on write: Deliver iterates slices without the shard lock.
			next := make([]*Subscription, 0, len(subs)+1)
			next = append(next, subs...)
			return append(next, s), true
		})
	}
	return s, added
}

// remove unregisters s and returns the names left without subscribers.
func (r *Router) remove(s *Subscription) []string {
	reg := r.registry(s.kind)
	var orphaned []string
	for _, name := range s.names {
		reg.Compute(name, func(subs []*Subscription, exists bool) ([]*Subscription, bool) {
			if !exists {
				return nil, false
			}
			next := make([]*Subscription, 0, len(subs))
			for _, sub := range subs {
				if sub != s {
					next = append(next, sub)
				}
			}
			if len(next) == 0 {
				orphaned = append(orphaned, name)
				return nil, false
			}
			return next, true
		})
	}
	return orphaned
}

// Names returns the subscribed names of a kind.
func (r *Router) Names(kind transporter.MessageKind) []string {
	return r.registry(kind).Keys()
}

// Count returns the number of distinct subscribed names of every kind.
func (r *Router) Count() int {
	n := 0
	for _, reg := range r.registries {
		n += reg.Count()
	}
	return n
}

// Subscribers returns the number of open subscriptions. A subscription
// listening on several names is counted once.
func (r *Router) Subscribers() int {
	seen := make(map[uint64]struct{})
	for _, reg := range r.registries {
		for _, subs := range reg.Values() {
			for _, s := range subs {
				seen[s.id] = struct{}{}
			}
		}
	}
	return len(seen)
}

// Dropped returns how many messages were discarded because a
// subscription's buffer was full.
func (r *Router) Dropped() uint64 {
	return r.dropped.Load()
}

// Deliver routes m to every subscription registered for it.
func (r *Router) Deliver(m transporter.Message) {
	key := m.Channel
	if m.Kind == transporter.KindPatternMessage {
		key = m.Pattern
	}
	subs, ok := r.registry(m.Kind).Get(key)
	if !ok {
		return
	}
	for _, s := range subs {
		if !s.send(m) {
			n := r.dropped.Add(1)
			r.logger.Warn("pubsub subscriber too slow, message dropped",
				"kind", m.Kind.String(),
				"channel", m.Channel,
				"subscription", s.id,
				"dropped_total", n,
			)
		}
	}
}

func (r *Router) OnChannelMessage(channel string, payload resp.Reply) {
	r.Deliver(transporter.Message{Kind: transporter.KindMessage, Channel: channel, Payload: payload})
}

func (r *Router) OnShardChannelMessage(shardChannel string, payload resp.Reply) {
	r.Deliver(transporter.Message{Kind: transporter.KindShardMessage, Channel: shardChannel, Payload: payload})
}

func (r *Router) OnPatternMessage(pattern, channel string, payload resp.Reply) {
	r.Deliver(transporter.Message{
		Kind:    transporter.KindPatternMessage,
		Pattern: pattern,
		Channel: channel,
		Payload: payload,
	})
}

// Subscription receives the messages of its names on C. C is closed by
// Close.
type Subscription struct {
	C <-chan transporter.Message

	router *Router
	kind   transporter.MessageKind
	id     uint64
	names  []string
	ch     chan transporter.Message

	mu     sync.Mutex
	closed bool
}

// Kind returns the message kind the subscription listens for.
func (s *Subscription) Kind() transporter.MessageKind { return s.kind }

// Names returns the channels, patterns or shard channels of s.
func (s *Subscription) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Close unregisters s, closes C and returns the names that no longer have
// any local subscriber. Subsequent calls return nil.
func (s *Subscription) Close() []string {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	return s.router.remove(s)
}

// send reports false when the message had to be dropped.
func (s *Subscription) send(m transporter.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- m:
		return true
	default:
		return false
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

package pubsub

import (
	"io"
	"log/slog"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/yndnr/rediswire/internal/redistest"
	"github.com/yndnr/rediswire/pkg/connection"
	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

func quietRouter(opts ...Option) *Router {
	return NewRouter(append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)...)
}

func recv(t *testing.T, s *Subscription) transporter.Message {
	t.Helper()
	select {
	case m, ok := <-s.C:
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("no message received")
		return transporter.Message{}
	}
}

func empty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case m := <-s.C:
		t.Errorf("unexpected message %+v", m)
	default:
	}
}

// ============================================================
// Registry Tests
// ============================================================

func TestRouter_SubscribeReportsNewNames(t *testing.T) {
	r := quietRouter()

	s1, added := r.Subscribe(transporter.KindMessage, "a", "b", "a")
	if !reflect.DeepEqual(added, []string{"a", "b"}) {
		t.Errorf("first Subscribe() added = %v, want [a b]", added)
	}
	if !reflect.DeepEqual(s1.Names(), []string{"a", "b"}) {
		t.Errorf("Names() = %v", s1.Names())
	}

	s2, added := r.Subscribe(transporter.KindMessage, "b", "c")
	if !reflect.DeepEqual(added, []string{"c"}) {
		t.Errorf("second Subscribe() added = %v, want [c]", added)
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
	p, _ := r.Subscribe(transporter.KindPatternMessage, "a*")
	if got := r.Subscribers(); got != 3 {
		t.Errorf("Subscribers() = %d, want 3", got)
	}
	p.Close()

	orphaned := s1.Close()
	if !reflect.DeepEqual(orphaned, []string{"a"}) {
		t.Errorf("s1.Close() = %v, want [a]", orphaned)
	}
	if again := s1.Close(); again != nil {
		t.Errorf("second Close() = %v, want nil", again)
	}

	orphaned = s2.Close()
	sort.Strings(orphaned)
	if !reflect.DeepEqual(orphaned, []string{"b", "c"}) {
		t.Errorf("s2.Close() = %v, want [b c]", orphaned)
	}
	if r.Count() != 0 {
		t.Errorf("Count() after closing all = %d, want 0", r.Count())
	}
	if got := r.Subscribers(); got != 0 {
		t.Errorf("Subscribers() after closing all = %d, want 0", got)
	}
}

func TestRouter_KindsAreSeparate(t *testing.T) {
	r := quietRouter()
	ch, _ := r.Subscribe(transporter.KindMessage, "news")
	pat, added := r.Subscribe(transporter.KindPatternMessage, "news")
	if len(added) != 1 {
		t.Errorf("pattern with a channel's name added = %v", added)
	}
	sh, _ := r.Subscribe(transporter.KindShardMessage, "news")

	r.OnChannelMessage("news", resp.BulkString("c"))
	r.OnPatternMessage("news", "news", resp.BulkString("p"))
	r.OnShardChannelMessage("news", resp.BulkString("s"))

	if m := recv(t, ch); m.Payload.Str() != "c" {
		t.Errorf("channel subscription got %+v", m)
	}
	if m := recv(t, pat); m.Payload.Str() != "p" || m.Pattern != "news" {
		t.Errorf("pattern subscription got %+v", m)
	}
	if m := recv(t, sh); m.Payload.Str() != "s" {
		t.Errorf("shard subscription got %+v", m)
	}
	empty(t, ch)
	empty(t, pat)
	empty(t, sh)

	if got := r.Names(transporter.KindShardMessage); !reflect.DeepEqual(got, []string{"news"}) {
		t.Errorf("Names(shard) = %v", got)
	}
}

// ============================================================
// Delivery Tests
// ============================================================

func TestRouter_FanOut(t *testing.T) {
	r := quietRouter()
	s1, _ := r.Subscribe(transporter.KindMessage, "news")
	s2, _ := r.Subscribe(transporter.KindMessage, "news")

	r.OnChannelMessage("news", resp.BulkString("hello"))
	r.OnChannelMessage("other", resp.BulkString("ignored"))

	for _, s := range []*Subscription{s1, s2} {
		if m := recv(t, s); m.Channel != "news" || m.Payload.Str() != "hello" {
			t.Errorf("got %+v", m)
		}
		empty(t, s)
	}
}

func TestRouter_DropsWhenFull(t *testing.T) {
	r := quietRouter(WithBufferSize(2))
	s, _ := r.Subscribe(transporter.KindMessage, "c")

	for i := 0; i < 5; i++ {
		r.OnChannelMessage("c", resp.Integer(int64(i)))
	}
	if r.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", r.Dropped())
	}
	if m := recv(t, s); m.Payload.Int() != 0 {
		t.Errorf("first = %+v, want 0", m)
	}
	if m := recv(t, s); m.Payload.Int() != 1 {
		t.Errorf("second = %+v, want 1", m)
	}
}

func TestRouter_CloseStopsDelivery(t *testing.T) {
	r := quietRouter()
	s, _ := r.Subscribe(transporter.KindMessage, "c")
	s.Close()

	r.OnChannelMessage("c", resp.BulkString("late"))
	if _, ok := <-s.C; ok {
		t.Error("closed subscription received a message")
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", r.Dropped())
	}
}

// ============================================================
// Integration Tests
// ============================================================

func TestRouter_WithTransporter(t *testing.T) {
	srv := redistest.Start(t)
	r := quietRouter()
	tr := transporter.New(transporter.SeparateConnection,
		transporter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		transporter.WithMessageHandler(r),
	)
	if err := tr.Init(connection.KindStream, srv.Host(), srv.Port()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer tr.Clear()
	if err := tr.Connect(2 * time.Second); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := tr.Subscribe(0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sub, added := r.Subscribe(transporter.KindPatternMessage, "orders.*")
	if _, err := tr.SendChannelCommandAll(append([]any{"PSUBSCRIBE"}, toAny(added)...)...); err != nil {
		t.Fatalf("PSUBSCRIBE error = %v", err)
	}

	if _, err := tr.SendCommand("PUBLISH", "orders.eu", "42"); err != nil {
		t.Fatalf("PUBLISH error = %v", err)
	}
	m := recv(t, sub)
	if m.Channel != "orders.eu" || m.Pattern != "orders.*" || m.Payload.Str() != "42" {
		t.Errorf("message = %+v", m)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

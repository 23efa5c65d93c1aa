package client

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yndnr/rediswire/internal/redistest"
	"github.com/yndnr/rediswire/pkg/resp"
	"github.com/yndnr/rediswire/pkg/transporter"
)

func dial(t *testing.T, s *redistest.Server, opts Options) *Client {
	t.Helper()
	opts.Host = s.Host()
	opts.Port = s.Port()
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := Dial(opts)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func recv(t *testing.T, sub *Subscription) transporter.Message {
	t.Helper()
	select {
	case m, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("no message received")
		return transporter.Message{}
	}
}

// ============================================================
// Connection Setup Tests
// ============================================================

func TestDial_AuthAndSelect(t *testing.T) {
	s := redistest.Start(t, redistest.WithPassword("s3cret"))
	c := dial(t, s, Options{Password: "s3cret", DB: 3})

	if got := c.SelectedDB(); got != 3 {
		t.Errorf("SelectedDB() = %d, want 3", got)
	}
	if s.CountRequests("auth") != 1 || s.CountRequests("select") != 1 {
		t.Errorf("requests = %v", s.Requests())
	}
	if err := c.Ping(""); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if err := c.Reconnect(); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if got := c.SelectedDB(); got != 3 {
		t.Errorf("SelectedDB() after Reconnect = %d, want 3", got)
	}
	if s.CountRequests("auth") != 2 {
		t.Errorf("AUTH not repeated on reconnect: %v", s.Requests())
	}
}

func TestDial_WrongPassword(t *testing.T) {
	s := redistest.Start(t, redistest.WithPassword("s3cret"))
	_, err := Dial(Options{
		Host:     s.Host(),
		Port:     s.Port(),
		Password: "wrong",
		Timeout:  time.Second,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	var serr *resp.ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Dial() error = %v, want *resp.ServerError", err)
	}
	if serr.Prefix() != "WRONGPASS" {
		t.Errorf("Prefix() = %q, want WRONGPASS", serr.Prefix())
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	if _, err := New(Options{Host: "h", Port: 1, DB: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("New(DB -1) error = %v, want ErrInvalidArgument", err)
	}

	c, err := New(Options{Host: "127.0.0.1", Port: 1, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()
	if c.SelectedDB() != -1 {
		t.Errorf("SelectedDB() unconnected = %d, want -1", c.SelectedDB())
	}
	if c.IsConnected() {
		t.Error("IsConnected() before Connect")
	}
}

// ============================================================
// Command Tests
// ============================================================

func TestClient_ServerCommands(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{})

	if err := c.Ping("hello"); err != nil {
		t.Errorf("Ping(hello) error = %v", err)
	}
	if got, err := c.Echo("echo me"); err != nil || got != "echo me" {
		t.Errorf("Echo() = %q, %v", got, err)
	}
	if err := c.Select(2); err != nil {
		t.Errorf("Select(2) error = %v", err)
	}
	if c.SelectedDB() != 2 {
		t.Errorf("SelectedDB() = %d, want 2", c.SelectedDB())
	}
	if err := c.Select(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Select(-1) error = %v, want ErrInvalidArgument", err)
	}
	if err := c.Select(99); err == nil {
		t.Error("Select(99) succeeded")
	}
	if err := c.Auth("nopass"); err == nil {
		t.Error("Auth() without a configured password succeeded")
	}
}

func TestClient_Strings(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{})

	if err := c.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, ok, err := c.Get("greeting"); err != nil || !ok || v != "hello" {
		t.Errorf("Get(greeting) = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := c.Get("missing"); err != nil || ok {
		t.Errorf("Get(missing) ok = %v, err = %v", ok, err)
	}
	if n, err := c.DBSize(); err != nil || n != 1 {
		t.Errorf("DBSize() = %d, %v", n, err)
	}
	if n, err := c.Del("greeting", "missing"); err != nil || n != 1 {
		t.Errorf("Del() = %d, %v", n, err)
	}
	if _, err := c.Del(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Del() without keys error = %v", err)
	}
}

func TestClient_IncrByFloat(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{})

	steps := []struct {
		incr string
		want string
	}{
		{"1.5", "1.5"},
		{"0.25", "1.75"},
		{"-2", "-0.25"},
	}
	for _, st := range steps {
		got, err := c.IncrByFloat("f", decimal.RequireFromString(st.incr))
		if err != nil {
			t.Fatalf("IncrByFloat(%s) error = %v", st.incr, err)
		}
		if !got.Equal(decimal.RequireFromString(st.want)) {
			t.Errorf("IncrByFloat(%s) = %s, want %s", st.incr, got, st.want)
		}
	}

	if err := c.Set("text", "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := c.IncrByFloat("text", decimal.NewFromInt(1)); err == nil {
		t.Error("IncrByFloat on a non-number succeeded")
	}
}

func TestClient_ExecAndCheck(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{})

	if r, err := c.Exec("SET  k   v"); err != nil || !r.IsOK() {
		t.Errorf("Exec(SET) = %v, %v", r, err)
	}
	if r, err := c.Exec("GET k"); err != nil || r.Str() != "v" {
		t.Errorf("Exec(GET) = %v, %v", r, err)
	}
	if _, err := c.Exec("   "); !errors.Is(err, transporter.ErrEmptyCommand) {
		t.Errorf("Exec(blank) error = %v, want ErrEmptyCommand", err)
	}

	tests := []struct {
		args []any
		want bool
	}{
		{[]any{"SET", "a", "1"}, true},
		{[]any{"GET", "a"}, true},
		{[]any{"GET", "missing"}, false},
		{[]any{"PING"}, false},
		{[]any{"NOSUCH"}, false},
		{[]any{"DBSIZE"}, true},
	}
	for _, tt := range tests {
		got, err := c.Check(tt.args...)
		if err != nil {
			t.Errorf("Check(%v) error = %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Check(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestClient_Info(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{})
	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := c.Info("")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if got := info["server"]["redis_version"]; got != "7.2.4" {
		t.Errorf("server.redis_version = %q", got)
	}
	if got, ok := info.Get("connected_clients"); !ok || got != "1" {
		t.Errorf("connected_clients = %q, %v", got, ok)
	}

	ks, err := c.Info("KEYSPACE")
	if err != nil {
		t.Fatalf("Info(keyspace) error = %v", err)
	}
	if got := ks["keyspace"]["db0"]; got != "keys=1,expires=0,avg_ttl=0" {
		t.Errorf("keyspace.db0 = %q", got)
	}

	if _, err := c.Info("bogus"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Info(bogus) error = %v, want ErrInvalidArgument", err)
	}
}

func TestParseInfo(t *testing.T) {
	text := "loose:1\r\n# Server\r\nredis_version:7.2.4\r\nrun_id:abc\r\n\r\n# Keyspace\r\ndb0:keys=1,expires=0\r\nnot a field\r\nurl:redis://h:1\r\n"
	info := ParseInfo(text)

	tests := []struct {
		section, field, want string
	}{
		{"default", "loose", "1"},
		{"server", "redis_version", "7.2.4"},
		{"server", "run_id", "abc"},
		{"keyspace", "db0", "keys=1,expires=0"},
		{"keyspace", "url", "redis://h:1"},
	}
	for _, tt := range tests {
		if got := info[tt.section][tt.field]; got != tt.want {
			t.Errorf("%s.%s = %q, want %q", tt.section, tt.field, got, tt.want)
		}
	}
	if len(info["keyspace"]) != 2 {
		t.Errorf("keyspace = %v", info["keyspace"])
	}
	if _, ok := info.Get("missing"); ok {
		t.Error("Get(missing) ok")
	}
}

// ============================================================
// Pub/Sub Tests
// ============================================================

func TestClient_Subscribe(t *testing.T) {
	for _, mode := range []transporter.ChannelMode{transporter.CurrentConnection, transporter.SeparateConnection} {
		t.Run(mode.String(), func(t *testing.T) {
			s := redistest.Start(t)
			c := dial(t, s, Options{ChannelMode: mode})
			pub := dial(t, s, Options{})

			sub1, err := c.Subscribe("news")
			if err != nil {
				t.Fatalf("Subscribe() error = %v", err)
			}
			sub2, err := c.Subscribe("news", "sports")
			if err != nil {
				t.Fatalf("second Subscribe() error = %v", err)
			}
			if got := s.CountRequests("subscribe"); got != 2 {
				t.Errorf("SUBSCRIBE sent %d times, want 2", got)
			}

			if n, err := pub.Publish("news", "headline"); err != nil || n != 1 {
				t.Fatalf("Publish() = %d, %v", n, err)
			}
			for _, sub := range []*Subscription{sub1, sub2} {
				if m := recv(t, sub); m.Channel != "news" || m.Payload.Str() != "headline" {
					t.Errorf("message = %+v", m)
				}
			}

			if err := sub1.Close(); err != nil {
				t.Fatalf("sub1.Close() error = %v", err)
			}
			if got := s.CountRequests("unsubscribe"); got != 0 {
				t.Errorf("UNSUBSCRIBE sent while news still has a subscriber")
			}
			if !c.Transporter().IsSubscribed() {
				t.Error("transporter unsubscribed while a subscription is open")
			}

			if err := sub2.Close(); err != nil {
				t.Fatalf("sub2.Close() error = %v", err)
			}
			if got := s.CountRequests("unsubscribe"); got != 1 {
				t.Errorf("UNSUBSCRIBE sent %d times, want 1", got)
			}
			if c.Transporter().IsSubscribed() {
				t.Error("transporter still subscribed after last Close")
			}
			if err := c.Ping(""); err != nil {
				t.Errorf("Ping() after unsubscribe error = %v", err)
			}
		})
	}
}

func TestClient_SubscribeSeparateWithPassword(t *testing.T) {
	s := redistest.Start(t, redistest.WithPassword("s3cret"))
	c := dial(t, s, Options{Password: "s3cret", DB: 2, ChannelMode: transporter.SeparateConnection})

	sub, err := c.Subscribe("chan1")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()
	if got := s.CountRequests("auth"); got != 2 {
		t.Errorf("AUTH sent %d times, want once per connection", got)
	}
	if got := c.Transporter().SubscriptionDB(); got != 2 {
		t.Errorf("SubscriptionDB() = %d, want 2", got)
	}
	if n, err := c.Publish("chan1", "hello"); err != nil || n != 1 {
		t.Fatalf("Publish() = %d, %v", n, err)
	}
	if m := recv(t, sub); m.Payload.Str() != "hello" {
		t.Errorf("message = %+v", m)
	}

	// Both reopened connections authenticate again.
	if err := c.Reconnect(); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	if got := s.CountRequests("auth"); got != 4 {
		t.Errorf("AUTH sent %d times after Reconnect, want 4", got)
	}
	sub2, err := c.Subscribe("chan2")
	if err != nil {
		t.Fatalf("Subscribe() after Reconnect error = %v", err)
	}
	defer sub2.Close()
	if n, err := c.Publish("chan2", "again"); err != nil || n != 1 {
		t.Fatalf("Publish() after Reconnect = %d, %v", n, err)
	}
	if m := recv(t, sub2); m.Payload.Str() != "again" {
		t.Errorf("message after Reconnect = %+v", m)
	}
}

func TestClient_PatternAndShard(t *testing.T) {
	s := redistest.Start(t)
	c := dial(t, s, Options{ChannelMode: transporter.SeparateConnection})

	psub, err := c.PSubscribe("orders.*")
	if err != nil {
		t.Fatalf("PSubscribe() error = %v", err)
	}
	defer psub.Close()
	ssub, err := c.SSubscribe("shard-1")
	if err != nil {
		t.Fatalf("SSubscribe() error = %v", err)
	}
	defer ssub.Close()

	if n, err := c.Publish("orders.eu", "o1"); err != nil || n != 1 {
		t.Fatalf("Publish() = %d, %v", n, err)
	}
	if m := recv(t, psub); m.Pattern != "orders.*" || m.Channel != "orders.eu" {
		t.Errorf("pattern message = %+v", m)
	}

	if n, err := c.SPublish("shard-1", "s1"); err != nil || n != 1 {
		t.Fatalf("SPublish() = %d, %v", n, err)
	}
	if m := recv(t, ssub); m.Channel != "shard-1" || m.Payload.Str() != "s1" {
		t.Errorf("shard message = %+v", m)
	}

	if _, err := c.Subscribe(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Subscribe() without channels error = %v", err)
	}
}

func TestClient_SubscribeRejected(t *testing.T) {
	s := redistest.Start(t)
	s.Handle("subscribe", func(*redistest.Conn, []string) []resp.Reply {
		return []resp.Reply{resp.Error("ERR subscriptions disabled")}
	})
	c := dial(t, s, Options{ChannelMode: transporter.SeparateConnection})

	if _, err := c.Subscribe("a", "b"); err == nil {
		t.Fatal("Subscribe() succeeded against a rejecting server")
	}
	if c.Router().Count() != 0 {
		t.Errorf("router kept %d names after a rejected subscribe", c.Router().Count())
	}
	if c.Transporter().IsSubscribed() {
		t.Error("transporter left subscribed after a rejected subscribe")
	}
}

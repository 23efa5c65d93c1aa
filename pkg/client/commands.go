package client

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yndnr/rediswire/pkg/resp"
)

// infoSections are the INFO section names accepted by Info.
var infoSections = map[string]bool{
	"server":       true,
	"clients":      true,
	"memory":       true,
	"persistence":  true,
	"stats":        true,
	"replication":  true,
	"cpu":          true,
	"commandstats": true,
	"cluster":      true,
	"keyspace":     true,
	"all":          true,
	"default":      true,
	"everything":   true,
	"errorstats":   true,
	"latencystats": true,
	"modules":      true,
}

// Exec splits line on spaces and sends it as one command.
func (c *Client) Exec(line string) (resp.Reply, error) {
	fields := strings.Fields(line)
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return c.Do(args...)
}

// Check sends a command and reports whether it succeeded: not an error,
// not nil, and "OK" if it is a status reply.
func (c *Client) Check(args ...any) (bool, error) {
	r, err := c.Do(args...)
	if err != nil {
		return false, err
	}
	switch {
	case r.IsError(), r.IsNil():
		return false, nil
	case r.IsStatus():
		return r.IsOK(), nil
	default:
		return true, nil
	}
}

// Ping sends PING, with msg when it is not empty, and verifies the echo.
func (c *Client) Ping(msg string) error {
	if msg == "" {
		r, err := c.call("PING")
		if err != nil {
			return err
		}
		if !r.IsStatus() || r.Str() != "PONG" {
			return unexpected(r)
		}
		return nil
	}

	r, err := c.call("PING", msg)
	if err != nil {
		return err
	}
	if r.Kind() != resp.KindBulk || r.Str() != msg {
		return unexpected(r)
	}
	return nil
}

// Echo sends ECHO.
func (c *Client) Echo(msg string) (string, error) {
	r, err := c.call("ECHO", msg)
	if err != nil {
		return "", err
	}
	return r.Str(), nil
}

// Auth authenticates the default user.
func (c *Client) Auth(password string) error {
	return c.AuthUser("", password)
}

// AuthUser authenticates with an ACL user name. An empty username uses the
// single-argument form.
func (c *Client) AuthUser(username, password string) error {
	if username == "" {
		return c.callOK("AUTH", password)
	}
	return c.callOK("AUTH", username, password)
}

// Select selects a logical database.
func (c *Client) Select(db int) error {
	if db < 0 {
		return fmt.Errorf("%w: db %d", ErrInvalidArgument, db)
	}
	return c.callOK("SELECT", strconv.Itoa(db))
}

// DBSize returns the number of keys in the selected database.
func (c *Client) DBSize() (int64, error) {
	r, err := c.call("DBSIZE")
	if err != nil {
		return 0, err
	}
	if r.Kind() != resp.KindInteger {
		return 0, unexpected(r)
	}
	return r.Int(), nil
}

// Info is the parsed INFO reply: section name (lower case) to fields.
type Info map[string]map[string]string

// Get returns a field from any section.
func (i Info) Get(field string) (string, bool) {
	for _, sec := range i {
		if v, ok := sec[field]; ok {
			return v, true
		}
	}
	return "", false
}

// Info sends INFO for section, or the default sections when empty.
func (c *Client) Info(section string) (Info, error) {
	section = strings.ToLower(strings.TrimSpace(section))
	args := []any{"INFO"}
	if section != "" {
		if !infoSections[section] {
			return nil, fmt.Errorf("%w: info section %q", ErrInvalidArgument, section)
		}
		args = append(args, section)
	}

	r, err := c.call(args...)
	if err != nil {
		return nil, err
	}
	if r.Kind() != resp.KindBulk || r.IsNil() {
		return nil, unexpected(r)
	}
	return ParseInfo(r.Str()), nil
}

// ParseInfo parses the text of an INFO reply. Fields that appear before
// any "# Section" header are stored under "default". Lines without a
// colon are ignored.
func ParseInfo(text string) Info {
	info := make(Info)
	current := "default"

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			current = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		sec, exists := info[current]
		if !exists {
			sec = make(map[string]string)
			info[current] = sec
		}
		sec[k] = v
	}
	return info
}

// Get returns the value of key; ok is false when the key does not exist.
func (c *Client) Get(key string) (value string, ok bool, err error) {
	r, err := c.call("GET", key)
	if err != nil {
		return "", false, err
	}
	if r.IsNil() {
		return "", false, nil
	}
	if r.Kind() != resp.KindBulk {
		return "", false, unexpected(r)
	}
	return r.Str(), true, nil
}

// Set stores value at key.
func (c *Client) Set(key, value string) error {
	return c.callOK("SET", key, value)
}

// Del removes keys and returns how many existed.
func (c *Client) Del(keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, fmt.Errorf("%w: no keys", ErrInvalidArgument)
	}
	r, err := c.call(append([]any{"DEL"}, stringArgs(keys)...)...)
	if err != nil {
		return 0, err
	}
	return r.Int(), nil
}

// IncrByFloat increments the number stored at key. Decimal arithmetic
// keeps the value exactly as the server reports it.
func (c *Client) IncrByFloat(key string, incr decimal.Decimal) (decimal.Decimal, error) {
	r, err := c.call("INCRBYFLOAT", key, incr.String())
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(r.Str())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnexpectedReply, r)
	}
	return d, nil
}

// Publish posts a message and returns the number of receivers.
func (c *Client) Publish(channel, message string) (int64, error) {
	r, err := c.call("PUBLISH", channel, message)
	if err != nil {
		return 0, err
	}
	return r.Int(), nil
}

// SPublish posts a message to a shard channel.
func (c *Client) SPublish(shardChannel, message string) (int64, error) {
	r, err := c.call("SPUBLISH", shardChannel, message)
	if err != nil {
		return 0, err
	}
	return r.Int(), nil
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

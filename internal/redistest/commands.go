package redistest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yndnr/rediswire/pkg/resp"
)

// Databases is the number of logical databases, as in a default Redis.
const Databases = 16

func one(r resp.Reply) []resp.Reply { return []resp.Reply{r} }

func errArity(name string) []resp.Reply {
	return one(resp.Error(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))))
}

func (s *Server) builtin(name string) HandlerFunc {
	fn := s.lookup(name)
	return func(c *Conn, args []string) []resp.Reply {
		if name != "AUTH" && name != "QUIT" {
			c.mu.Lock()
			authed := c.authed
			c.mu.Unlock()
			if !authed {
				return one(resp.Error("NOAUTH Authentication required."))
			}
		}
		return fn(c, args)
	}
}

func (s *Server) lookup(name string) HandlerFunc {
	switch name {
	case "PING":
		return s.cmdPing
	case "ECHO":
		return s.cmdEcho
	case "AUTH":
		return s.cmdAuth
	case "QUIT":
		return func(*Conn, []string) []resp.Reply { return one(resp.Simple("OK")) }
	case "SELECT":
		return s.cmdSelect
	case "GET":
		return s.cmdGet
	case "SET":
		return s.cmdSet
	case "DEL":
		return s.cmdDel
	case "DBSIZE":
		return s.cmdDBSize
	case "INCRBYFLOAT":
		return s.cmdIncrByFloat
	case "INFO":
		return s.cmdInfo
	case "PUBLISH":
		return s.cmdPublish
	case "SPUBLISH":
		return s.cmdSPublish
	case "SUBSCRIBE":
		return subscribeCmd(kindChannel, "subscribe")
	case "PSUBSCRIBE":
		return subscribeCmd(kindPattern, "psubscribe")
	case "SSUBSCRIBE":
		return subscribeCmd(kindShard, "ssubscribe")
	case "UNSUBSCRIBE":
		return unsubscribeCmd(kindChannel, "unsubscribe")
	case "PUNSUBSCRIBE":
		return unsubscribeCmd(kindPattern, "punsubscribe")
	case "SUNSUBSCRIBE":
		return unsubscribeCmd(kindShard, "sunsubscribe")
	default:
		return func(_ *Conn, args []string) []resp.Reply {
			return one(resp.Error(fmt.Sprintf("ERR unknown command '%s', with args beginning with: ", args[0])))
		}
	}
}

func (s *Server) cmdPing(_ *Conn, args []string) []resp.Reply {
	switch len(args) {
	case 1:
		return one(resp.Simple("PONG"))
	case 2:
		return one(resp.BulkString(args[1]))
	default:
		return errArity(args[0])
	}
}

func (s *Server) cmdEcho(_ *Conn, args []string) []resp.Reply {
	if len(args) != 2 {
		return errArity(args[0])
	}
	return one(resp.BulkString(args[1]))
}

func (s *Server) cmdAuth(c *Conn, args []string) []resp.Reply {
	if len(args) < 2 || len(args) > 3 {
		return errArity(args[0])
	}
	if s.password == "" {
		return one(resp.Error("ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?"))
	}
	if args[len(args)-1] != s.password {
		return one(resp.Error("WRONGPASS invalid username-password pair or user is disabled."))
	}
	c.mu.Lock()
	c.authed = true
	c.mu.Unlock()
	return one(resp.Simple("OK"))
}

func (s *Server) cmdSelect(c *Conn, args []string) []resp.Reply {
	if len(args) != 2 {
		return errArity(args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return one(resp.Error("ERR value is not an integer or out of range"))
	}
	if n < 0 || n >= Databases {
		return one(resp.Error("ERR DB index is out of range"))
	}
	c.mu.Lock()
	c.db = n
	c.mu.Unlock()
	return one(resp.Simple("OK"))
}

// keyspace returns the map of the connection's database. s.mu must be held.
func (s *Server) keyspaceLocked(c *Conn) map[string]string {
	db := c.DB()
	m, ok := s.dbs[db]
	if !ok {
		m = make(map[string]string)
		s.dbs[db] = m
	}
	return m
}

func (s *Server) cmdGet(c *Conn, args []string) []resp.Reply {
	if len(args) != 2 {
		return errArity(args[0])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keyspaceLocked(c)[args[1]]
	if !ok {
		return one(resp.NilBulk())
	}
	return one(resp.BulkString(v))
}

func (s *Server) cmdSet(c *Conn, args []string) []resp.Reply {
	if len(args) < 3 {
		return errArity(args[0])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyspaceLocked(c)[args[1]] = args[2]
	return one(resp.Simple("OK"))
}

func (s *Server) cmdDel(c *Conn, args []string) []resp.Reply {
	if len(args) < 2 {
		return errArity(args[0])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ks := s.keyspaceLocked(c)
	n := 0
	for _, k := range args[1:] {
		if _, ok := ks[k]; ok {
			delete(ks, k)
			n++
		}
	}
	return one(resp.Integer(int64(n)))
}

func (s *Server) cmdDBSize(c *Conn, args []string) []resp.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return one(resp.Integer(int64(len(s.keyspaceLocked(c)))))
}

func (s *Server) cmdIncrByFloat(c *Conn, args []string) []resp.Reply {
	if len(args) != 3 {
		return errArity(args[0])
	}
	incr, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return one(resp.Error("ERR value is not a valid float"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ks := s.keyspaceLocked(c)
	cur := 0.0
	if v, ok := ks[args[1]]; ok {
		if cur, err = strconv.ParseFloat(v, 64); err != nil {
			return one(resp.Error("ERR value is not a valid float"))
		}
	}
	next := strconv.FormatFloat(cur+incr, 'f', -1, 64)
	ks[args[1]] = next
	return one(resp.BulkString(next))
}

func (s *Server) cmdInfo(_ *Conn, args []string) []resp.Reply {
	s.mu.Lock()
	dbs := make([]int, 0, len(s.dbs))
	for db, ks := range s.dbs {
		if len(ks) > 0 {
			dbs = append(dbs, db)
		}
	}
	sort.Ints(dbs)
	var keyspace strings.Builder
	for _, db := range dbs {
		fmt.Fprintf(&keyspace, "db%d:keys=%d,expires=0,avg_ttl=0\r\n", db, len(s.dbs[db]))
	}
	clients := len(s.conns)
	s.mu.Unlock()

	sections := map[string]string{
		"server":   "# Server\r\nredis_version:7.2.4\r\nredis_mode:standalone\r\nos:rediswire-test\r\ntcp_port:0\r\n",
		"clients":  fmt.Sprintf("# Clients\r\nconnected_clients:%d\r\n", clients),
		"keyspace": "# Keyspace\r\n" + keyspace.String(),
	}
	order := []string{"server", "clients", "keyspace"}

	if len(args) > 1 {
		sec, ok := sections[strings.ToLower(args[1])]
		if !ok {
			return one(resp.BulkString(""))
		}
		return one(resp.BulkString(sec))
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, sections[name])
	}
	return one(resp.BulkString(strings.Join(parts, "\r\n")))
}

func (s *Server) cmdPublish(_ *Conn, args []string) []resp.Reply {
	if len(args) != 3 {
		return errArity(args[0])
	}
	return one(resp.Integer(int64(s.Publish(args[1], args[2]))))
}

func (s *Server) cmdSPublish(_ *Conn, args []string) []resp.Reply {
	if len(args) != 3 {
		return errArity(args[0])
	}
	return one(resp.Integer(int64(s.SPublish(args[1], args[2]))))
}

func subscribeCmd(kind subKind, verb string) HandlerFunc {
	return func(c *Conn, args []string) []resp.Reply {
		if len(args) < 2 {
			return errArity(args[0])
		}
		return c.subscribe(kind, verb, args[1:])
	}
}

func unsubscribeCmd(kind subKind, verb string) HandlerFunc {
	return func(c *Conn, args []string) []resp.Reply {
		return c.unsubscribe(kind, verb, args[1:])
	}
}

// matchGlob supports the '*' wildcard of PSUBSCRIBE patterns.
func matchGlob(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == s
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		idx := strings.Index(s, mid)
		if idx < 0 {
			return false
		}
		s = s[idx+len(mid):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}

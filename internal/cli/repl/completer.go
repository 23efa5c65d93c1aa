package repl

import (
	"sort"
	"strings"
)

// CommandDoc describes one command for help and completion.
type CommandDoc struct {
	Name    string
	Args    string
	Summary string
	Group   string
}

var commandDocs = []CommandDoc{
	{"APPEND", "key value", "Append a value to a key", "string"},
	{"DECR", "key", "Decrement the integer value of a key by one", "string"},
	{"DECRBY", "key decrement", "Decrement the integer value of a key by the given number", "string"},
	{"GET", "key", "Get the value of a key", "string"},
	{"GETDEL", "key", "Get the value of a key and delete the key", "string"},
	{"INCR", "key", "Increment the integer value of a key by one", "string"},
	{"INCRBY", "key increment", "Increment the integer value of a key by the given amount", "string"},
	{"INCRBYFLOAT", "key increment", "Increment the float value of a key by the given amount", "string"},
	{"MGET", "key [key ...]", "Get the values of all the given keys", "string"},
	{"MSET", "key value [key value ...]", "Set multiple keys to multiple values", "string"},
	{"SET", "key value [NX|XX] [EX seconds|PX milliseconds|KEEPTTL] [GET]", "Set the string value of a key", "string"},
	{"STRLEN", "key", "Get the length of the value stored in a key", "string"},

	{"DEL", "key [key ...]", "Delete a key", "generic"},
	{"EXISTS", "key [key ...]", "Determine if a key exists", "generic"},
	{"EXPIRE", "key seconds", "Set a key's time to live in seconds", "generic"},
	{"KEYS", "pattern", "Find all keys matching the given pattern", "generic"},
	{"PERSIST", "key", "Remove the expiration from a key", "generic"},
	{"RENAME", "key newkey", "Rename a key", "generic"},
	{"SCAN", "cursor [MATCH pattern] [COUNT count] [TYPE type]", "Incrementally iterate the keys space", "generic"},
	{"TTL", "key", "Get the time to live for a key in seconds", "generic"},
	{"TYPE", "key", "Determine the type stored at key", "generic"},

	{"HDEL", "key field [field ...]", "Delete one or more hash fields", "hash"},
	{"HGET", "key field", "Get the value of a hash field", "hash"},
	{"HGETALL", "key", "Get all the fields and values in a hash", "hash"},
	{"HSET", "key field value [field value ...]", "Set the string value of a hash field", "hash"},

	{"LPOP", "key [count]", "Remove and get the first elements in a list", "list"},
	{"LPUSH", "key element [element ...]", "Prepend one or multiple elements to a list", "list"},
	{"LRANGE", "key start stop", "Get a range of elements from a list", "list"},
	{"RPUSH", "key element [element ...]", "Append one or multiple elements to a list", "list"},

	{"SADD", "key member [member ...]", "Add one or more members to a set", "set"},
	{"SMEMBERS", "key", "Get all the members in a set", "set"},
	{"ZADD", "key score member [score member ...]", "Add one or more members to a sorted set", "sorted_set"},
	{"ZRANGE", "key start stop [WITHSCORES]", "Return a range of members in a sorted set", "sorted_set"},

	{"PUBLISH", "channel message", "Post a message to a channel", "pubsub"},
	{"PUBSUB", "subcommand [argument ...]", "Inspect the state of the Pub/Sub subsystem", "pubsub"},
	{"SPUBLISH", "shardchannel message", "Post a message to a shard channel", "pubsub"},

	{"AUTH", "[username] password", "Authenticate to the server", "connection"},
	{"ECHO", "message", "Echo the given string", "connection"},
	{"HELLO", "[protover [AUTH username password] [SETNAME clientname]]", "Handshake with Redis", "connection"},
	{"PING", "[message]", "Ping the server", "connection"},
	{"SELECT", "index", "Change the selected database for the current connection", "connection"},

	{"CONFIG", "GET parameter | SET parameter value", "Get or set configuration parameters", "server"},
	{"DBSIZE", "", "Return the number of keys in the selected database", "server"},
	{"FLUSHDB", "[ASYNC|SYNC]", "Remove all keys from the current database", "server"},
	{"INFO", "[section]", "Get information and statistics about the server", "server"},
	{"TIME", "", "Return the current server time", "server"},
}

// builtins are handled by the REPL itself.
var builtins = []CommandDoc{
	{"help", "[command|@group]", "Show help for a command or a group", "repl"},
	{"history", "", "Show the command history", "repl"},
	{"clear", "", "Clear the screen", "repl"},
	{"exit", "", "Leave the REPL", "repl"},
	{"quit", "", "Leave the REPL", "repl"},
}

// Completer provides command completion and help for the REPL.
type Completer struct {
	docs map[string]CommandDoc
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	c := &Completer{docs: make(map[string]CommandDoc, len(commandDocs)+len(builtins))}
	for _, d := range commandDocs {
		c.docs[d.Name] = d
	}
	for _, d := range builtins {
		c.docs[strings.ToUpper(d.Name)] = d
	}
	return c
}

// Complete returns the command names starting with prefix, ignoring case,
// in sorted order. Redis commands are upper case, builtins lower case.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var suggestions []string
	for key, d := range c.docs {
		if strings.HasPrefix(key, prefix) {
			suggestions = append(suggestions, d.Name)
		}
	}
	sort.Strings(suggestions)
	return suggestions
}

// Lookup returns the documentation of a command.
func (c *Completer) Lookup(name string) (CommandDoc, bool) {
	d, ok := c.docs[strings.ToUpper(name)]
	return d, ok
}

// Group returns the commands of a group sorted by name.
func (c *Completer) Group(group string) []CommandDoc {
	group = strings.ToLower(strings.TrimPrefix(group, "@"))
	var out []CommandDoc
	for _, d := range c.docs {
		if d.Group == group {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Groups returns the group names in sorted order.
func (c *Completer) Groups() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.docs {
		if !seen[d.Group] {
			seen[d.Group] = true
			out = append(out, d.Group)
		}
	}
	sort.Strings(out)
	return out
}

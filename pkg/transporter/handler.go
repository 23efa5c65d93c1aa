package transporter

import "github.com/yndnr/rediswire/pkg/resp"

// MessageKind identifies the shape of a pushed message.
type MessageKind int

const (
	// KindMessage is ["message", channel, payload].
	KindMessage MessageKind = iota + 1
	// KindShardMessage is ["smessage", shardChannel, payload].
	KindShardMessage
	// KindPatternMessage is ["pmessage", pattern, channel, payload].
	KindPatternMessage
)

func (k MessageKind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindShardMessage:
		return "smessage"
	case KindPatternMessage:
		return "pmessage"
	default:
		return "unknown"
	}
}

// Message is one pushed pub/sub message.
type Message struct {
	Kind MessageKind
	// Pattern is set for KindPatternMessage only.
	Pattern string
	// Channel is the channel or shard channel the message was published to.
	Channel string
	Payload resp.Reply
}

// MessageHandler receives pushed messages. Calls are made from a single
// goroutine, in arrival order.
type MessageHandler interface {
	OnChannelMessage(channel string, payload resp.Reply)
	OnShardChannelMessage(shardChannel string, payload resp.Reply)
	OnPatternMessage(pattern, channel string, payload resp.Reply)
}

// HandlerFuncs adapts plain functions to MessageHandler. Nil fields
// discard the corresponding messages.
type HandlerFuncs struct {
	Channel      func(channel string, payload resp.Reply)
	ShardChannel func(shardChannel string, payload resp.Reply)
	Pattern      func(pattern, channel string, payload resp.Reply)
}

func (h HandlerFuncs) OnChannelMessage(channel string, payload resp.Reply) {
	if h.Channel != nil {
		h.Channel(channel, payload)
	}
}

func (h HandlerFuncs) OnShardChannelMessage(shardChannel string, payload resp.Reply) {
	if h.ShardChannel != nil {
		h.ShardChannel(shardChannel, payload)
	}
}

func (h HandlerFuncs) OnPatternMessage(pattern, channel string, payload resp.Reply) {
	if h.Pattern != nil {
		h.Pattern(pattern, channel, payload)
	}
}

type nopHandler struct{}

func (nopHandler) OnChannelMessage(string, resp.Reply)         {}
func (nopHandler) OnShardChannelMessage(string, resp.Reply)    {}
func (nopHandler) OnPatternMessage(string, string, resp.Reply) {}

// classify reports whether r is a pushed message and decodes it.
// Subscribe acknowledgements and every other shape are not messages.
func classify(r resp.Reply) (Message, bool) {
	if r.Kind() != resp.KindArray || r.IsNil() {
		return Message{}, false
	}
	elems := r.Elems()
	if len(elems) == 0 {
		return Message{}, false
	}
	switch elems[0].Str() {
	case "message":
		if len(elems) == 3 {
			return Message{Kind: KindMessage, Channel: elems[1].Str(), Payload: elems[2]}, true
		}
	case "smessage":
		if len(elems) == 3 {
			return Message{Kind: KindShardMessage, Channel: elems[1].Str(), Payload: elems[2]}, true
		}
	case "pmessage":
		if len(elems) == 4 {
			return Message{
				Kind:    KindPatternMessage,
				Pattern: elems[1].Str(),
				Channel: elems[2].Str(),
				Payload: elems[3],
			}, true
		}
	}
	return Message{}, false
}

func deliver(h MessageHandler, m Message) {
	switch m.Kind {
	case KindMessage:
		h.OnChannelMessage(m.Channel, m.Payload)
	case KindShardMessage:
		h.OnShardChannelMessage(m.Channel, m.Payload)
	case KindPatternMessage:
		h.OnPatternMessage(m.Pattern, m.Channel, m.Payload)
	}
}

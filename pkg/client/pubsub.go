package client

import (
	"errors"
	"fmt"

	"github.com/yndnr/rediswire/pkg/pubsub"
	"github.com/yndnr/rediswire/pkg/transporter"
)

// Subscription delivers the messages of its channels on C until Close.
type Subscription struct {
	*pubsub.Subscription

	c      *Client
	unsubV string
}

type subVerbs struct {
	kind  transporter.MessageKind
	sub   string
	unsub string
}

var (
	channelVerbs = subVerbs{transporter.KindMessage, "SUBSCRIBE", "UNSUBSCRIBE"}
	patternVerbs = subVerbs{transporter.KindPatternMessage, "PSUBSCRIBE", "PUNSUBSCRIBE"}
	shardVerbs   = subVerbs{transporter.KindShardMessage, "SSUBSCRIBE", "SUNSUBSCRIBE"}
)

// Subscribe listens on channels.
func (c *Client) Subscribe(channels ...string) (*Subscription, error) {
	return c.subscribe(channelVerbs, channels)
}

// PSubscribe listens on glob patterns.
func (c *Client) PSubscribe(patterns ...string) (*Subscription, error) {
	return c.subscribe(patternVerbs, patterns)
}

// SSubscribe listens on shard channels.
func (c *Client) SSubscribe(shardChannels ...string) (*Subscription, error) {
	return c.subscribe(shardVerbs, shardChannels)
}

func (c *Client) subscribe(v subVerbs, names []string) (*Subscription, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidArgument)
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()

	if err := c.tr.Subscribe(c.opts.Timeout); err != nil {
		return nil, err
	}

	// Register before SUBSCRIBE so no message published right after the
	// acknowledgement is missed.
	ps, added := c.router.Subscribe(v.kind, names...)
	if len(added) > 0 {
		if err := c.sendAcked(v.sub, added); err != nil {
			c.releaseLocked(ps, v.unsub)
			return nil, err
		}
	}
	return &Subscription{Subscription: ps, c: c, unsubV: v.unsub}, nil
}

// Close stops delivery and unsubscribes the channels no other
// subscription uses. The last Close ends the transporter subscription.
func (s *Subscription) Close() error {
	s.c.subMu.Lock()
	defer s.c.subMu.Unlock()
	return s.c.releaseLocked(s.Subscription, s.unsubV)
}

func (c *Client) releaseLocked(ps *pubsub.Subscription, unsubVerb string) error {
	var err error
	if orphaned := ps.Close(); len(orphaned) > 0 && c.tr.IsSubscribed() {
		err = c.sendAcked(unsubVerb, orphaned)
	}
	if c.router.Count() == 0 {
		c.tr.Unsubscribe()
	}
	return err
}

// sendAcked sends a (un)subscribe command and waits for one
// acknowledgement per name.
func (c *Client) sendAcked(verb string, names []string) error {
	replies, err := c.tr.SendChannelCommandN(len(names), append([]any{verb}, stringArgs(names)...)...)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range replies {
		if err := r.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

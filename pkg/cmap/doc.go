// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards with murmur3, each
// guarded by its own RWMutex. It backs the channel, pattern and shard
// channel registries of pkg/pubsub, where message delivery reads the map on
// every push while subscribe and unsubscribe write to it.
//
// Usage:
//
//	m := cmap.New[[]*Subscriber]()
//	m.Compute("news", func(subs []*Subscriber, ok bool) ([]*Subscriber, bool) {
//		return append(subs, s), true
//	})
//	subs, ok := m.Get("news")
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has, Range) use
// RLock, write operations (Set, Delete, Compute) use Lock.
package cmap

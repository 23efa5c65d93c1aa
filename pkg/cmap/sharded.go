package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map with string keys.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a new sharded map with the default shard count.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a new sharded map with the specified shard count.
// shardCount must be a power of 2; other values fall back to the default.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], shardCount),
		shardMask: uint64(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

// shardIndex maps a key to its shard.
func (m *Map[V]) shardIndex(key string) int {
	return int(murmur3.Sum64([]byte(key)) & m.shardMask)
}

func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[m.shardIndex(key)]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	shard := m.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	val, ok := shard.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (m *Map[V]) Set(key string, value V) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.items[key] = value
}

// Delete removes a key.
func (m *Map[V]) Delete(key string) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.items, key)
}

// Has checks if a key exists.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Compute atomically replaces the value for key with the result of fn.
// fn receives the current value and whether it exists; returning keep=false
// deletes the key. Compute returns the stored value and keep.
func (m *Map[V]) Compute(key string, fn func(value V, exists bool) (newValue V, keep bool)) (V, bool) {
	shard := m.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	existing, exists := shard.items[key]
	value, keep := fn(existing, exists)
	if !keep {
		delete(shard.items, key)
		var zero V
		return zero, false
	}
	shard.items[key] = value
	return value, true
}

// Count returns the total number of items.
func (m *Map[V]) Count() int {
	count := 0
	for _, shard := range m.shards {
		shard.mu.RLock()
		count += len(shard.items)
		shard.mu.RUnlock()
	}
	return count
}

// Clear removes all items.
func (m *Map[V]) Clear() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.items = make(map[string]V)
		shard.mu.Unlock()
	}
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}

// ShardStats returns the number of items in each shard.
func (m *Map[V]) ShardStats() []int {
	stats := make([]int, len(m.shards))
	for i, shard := range m.shards {
		shard.mu.RLock()
		stats[i] = len(shard.items)
		shard.mu.RUnlock()
	}
	return stats
}

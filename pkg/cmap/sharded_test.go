package cmap

import (
	"fmt"
	"sort"
	"sync"
	"testing"
)

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{3, DefaultShardCount},
		{1, 1},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if m.ShardCount() != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, m.ShardCount(), tt.expected)
			}
		})
	}
}

func TestSetGetDelete(t *testing.T) {
	m := New[int]()

	m.Set("news", 1)
	m.Set("sports", 2)
	m.Set("news", 3)

	if val, ok := m.Get("news"); !ok || val != 3 {
		t.Errorf("Get(news) = (%d, %v), want (3, true)", val, ok)
	}
	if !m.Has("sports") || m.Has("weather") {
		t.Error("Has() mismatch")
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	m.Delete("news")
	m.Delete("nonexistent")
	if _, ok := m.Get("news"); ok {
		t.Error("news should not exist after deletion")
	}

	m.Clear()
	if m.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", m.Count())
	}
}

func TestCompute(t *testing.T) {
	m := New[[]string]()
	add := func(key, v string) {
		m.Compute(key, func(cur []string, _ bool) ([]string, bool) {
			return append(cur, v), true
		})
	}
	remove := func(key, v string) {
		m.Compute(key, func(cur []string, exists bool) ([]string, bool) {
			if !exists {
				return nil, false
			}
			out := cur[:0:0]
			for _, s := range cur {
				if s != v {
					out = append(out, s)
				}
			}
			return out, len(out) > 0
		})
	}

	add("chan", "a")
	add("chan", "b")
	if got, _ := m.Get("chan"); len(got) != 2 {
		t.Errorf("Get(chan) = %v, want 2 entries", got)
	}

	remove("chan", "a")
	if got, _ := m.Get("chan"); len(got) != 1 || got[0] != "b" {
		t.Errorf("Get(chan) = %v, want [b]", got)
	}

	remove("chan", "b")
	if m.Has("chan") {
		t.Error("Compute returning keep=false should delete the key")
	}

	remove("missing", "x")
	if m.Has("missing") {
		t.Error("Compute on a missing key created it")
	}
}

func TestShardDistribution(t *testing.T) {
	m := NewWithShards[int](4)
	for i := 0; i < 400; i++ {
		m.Set(fmt.Sprintf("channel:%d", i), i)
	}

	stats := m.ShardStats()
	if len(stats) != 4 {
		t.Fatalf("ShardStats() length = %d, want 4", len(stats))
	}
	total := 0
	for i, n := range stats {
		if n == 0 {
			t.Errorf("shard %d is empty", i)
		}
		total += n
	}
	if total != 400 {
		t.Errorf("total from stats = %d, want 400", total)
	}

	// The shard of a key is stable.
	if m.shardIndex("channel:7") != m.shardIndex("channel:7") {
		t.Error("shardIndex is not deterministic")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[int]()
	var wg sync.WaitGroup
	numGoroutines := 50
	numOps := 200

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("%d:%d", base, j)
				m.Set(key, j)
				m.Get(key)
				m.Compute("shared", func(v int, _ bool) (int, bool) { return v + 1, true })
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != numGoroutines*numOps+1 {
		t.Errorf("Count() = %d, want %d", m.Count(), numGoroutines*numOps+1)
	}
	if v, _ := m.Get("shared"); v != numGoroutines*numOps {
		t.Errorf("shared counter = %d, want %d", v, numGoroutines*numOps)
	}
}

func TestRange(t *testing.T) {
	m := New[int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	sum := 0
	m.Range(func(_ string, v int) bool {
		sum += v
		return true
	})
	if sum != 6 {
		t.Errorf("Range sum = %d, want 6", sum)
	}

	visited := 0
	m.Range(func(string, int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("Range visited %d after stop, want 1", visited)
	}

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("Keys() = %v", keys)
	}
	if len(m.Values()) != 3 {
		t.Errorf("Values() = %v", m.Values())
	}
}

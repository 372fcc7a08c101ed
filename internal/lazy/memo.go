package lazy

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats reports Memo usage.
type Stats struct {
	Hits    uint64
	Misses  uint64
	MaxSize int
	Size    int
}

// Memo is a bounded, least-recently-used cache of lazily computed values.
// Each key is computed at most once while it stays cached, even under
// concurrent first access.
type Memo[K comparable, V any] struct {
	cache   *lru.Cache[K, *Value[V]]
	maxSize int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewMemo creates a Memo holding at most size entries.
func NewMemo[K comparable, V any](size int) (*Memo[K, V], error) {
	cache, err := lru.New[K, *Value[V]](size)
	if err != nil {
		return nil, fmt.Errorf("creating memo: %w", err)
	}
	return &Memo[K, V]{cache: cache, maxSize: size}, nil
}

// Do returns the cached value for key, computing it with fn on a miss.
// Errors are returned to the caller and not cached.
func (m *Memo[K, V]) Do(key K, fn func() (V, error)) (V, error) {
	entry, ok := m.cache.Get(key)
	if !ok {
		fresh := New(fn)
		prev, found, _ := m.cache.PeekOrAdd(key, fresh)
		if found {
			entry = prev
		} else {
			entry = fresh
		}
	}

	val, computed, err := entry.load()
	if computed {
		m.misses.Add(1)
	} else {
		m.hits.Add(1)
	}
	if err != nil {
		if cur, ok := m.cache.Peek(key); ok && cur == entry {
			m.cache.Remove(key)
		}
		return val, err
	}
	return val, nil
}

// Peek returns the cached value for key if it has been computed.
// It does not update recency.
func (m *Memo[K, V]) Peek(key K) (V, bool) {
	entry, ok := m.cache.Peek(key)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Peek()
}

// Remove drops key. Returns true if it was present.
func (m *Memo[K, V]) Remove(key K) bool {
	return m.cache.Remove(key)
}

// Keys returns the cached keys from oldest to newest.
func (m *Memo[K, V]) Keys() []K {
	return m.cache.Keys()
}

// Len returns the number of cached entries.
func (m *Memo[K, V]) Len() int {
	return m.cache.Len()
}

// Purge drops every entry and resets the statistics.
func (m *Memo[K, V]) Purge() {
	m.cache.Purge()
	m.hits.Store(0)
	m.misses.Store(0)
}

// Stats returns current usage counters.
func (m *Memo[K, V]) Stats() Stats {
	return Stats{
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
		MaxSize: m.maxSize,
		Size:    m.cache.Len(),
	}
}

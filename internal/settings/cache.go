package settings

import (
	"slices"

	"github.com/dshills/tangled/internal/lazy"
)

// DefaultCacheSize is the number of resolved files a Cache keeps.
const DefaultCacheSize = 128

// Cache memoizes Loader results by absolute path.
//
// Concurrent first loads of one path share a single load. Failed loads are
// not cached.
type Cache struct {
	loader *Loader
	memo   *lazy.Memo[string, *Settings]
}

// NewCache creates a Cache over loader holding at most size entries.
// A size <= 0 uses DefaultCacheSize.
func NewCache(loader *Loader, size int) (*Cache, error) {
	if loader == nil {
		loader = NewLoader()
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	memo, err := lazy.NewMemo[string, *Settings](size)
	if err != nil {
		return nil, err
	}
	return &Cache{loader: loader, memo: memo}, nil
}

// Load returns the cached Settings for path, loading it on a miss.
func (c *Cache) Load(path string) (*Settings, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	return c.memo.Do(abs, func() (*Settings, error) {
		return c.loader.Load(abs)
	})
}

// Invalidate drops every cached entry whose extends chain includes path.
// It returns the number of entries dropped.
func (c *Cache) Invalidate(path string) int {
	abs, err := absPath(path)
	if err != nil {
		return 0
	}

	n := 0
	for _, key := range c.memo.Keys() {
		if key == abs {
			if c.memo.Remove(key) {
				n++
			}
			continue
		}
		s, ok := c.memo.Peek(key)
		if ok && slices.Contains(s.bases, abs) {
			if c.memo.Remove(key) {
				n++
			}
		}
	}
	return n
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.memo.Purge()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.memo.Len()
}

// Stats returns cache usage counters.
func (c *Cache) Stats() lazy.Stats {
	return c.memo.Stats()
}

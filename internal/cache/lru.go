package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUCache is a thread-safe LRU cache for thumbnail bytes bounded both by
// entry count and total byte size.
type LRUCache struct {
	maxSize int64 // max size in bytes
	size    int64
	items   *lru.Cache[string, []byte]
	mu      sync.Mutex
}

// NewLRUCache creates a new LRU cache with the specified capacity and max size in bytes
func NewLRUCache(capacity int, maxSizeBytes int64) *LRUCache {
	if capacity <= 0 {
		capacity = 1
	}

	c := &LRUCache{maxSize: maxSizeBytes}
	// Eviction callbacks run synchronously inside calls made under c.mu.
	items, err := lru.NewWithEvict(capacity, func(_ string, data []byte) {
		c.size -= int64(len(data))
	})
	if err != nil {
		panic(err) // only returned for non-positive sizes
	}
	c.items = items
	return c
}

// Get retrieves an item from the cache
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Get(key)
}

// Set adds or updates an item in the cache
func (c *LRUCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dataSize := int64(len(data))

	// If single item is larger than max size, don't cache it
	if dataSize > c.maxSize {
		return
	}

	if old, ok := c.items.Peek(key); ok {
		c.size -= int64(len(old))
	}
	c.items.Add(key, data)
	c.size += dataSize

	for c.size > c.maxSize && c.items.Len() > 0 {
		c.items.RemoveOldest()
	}
}

// Delete removes an item from the cache
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
}

// Len returns the number of items in the cache
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Size returns the current size in bytes
func (c *LRUCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

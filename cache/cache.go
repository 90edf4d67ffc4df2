// ABOUTME: In-memory cache with TTL-based expiration
// ABOUTME: Thread-safe map with lazy expiry on read and a periodic sweep

package cache

import (
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache stores values with a default time-to-live. Entries are treated as
// stale lazily at lookup; a background sweep bounds memory growth.
type Cache struct {
	mu    sync.RWMutex
	store map[string]entry
	ttl   time.Duration
}

// New creates a cache with the given default TTL and starts the sweeper.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		store: make(map[string]entry),
		ttl:   ttl,
	}
	go c.startSweep()
	return c
}

// Get returns the live value for key, or false when absent or expired.
// Expired entries are removed on read.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		slog.Debug("Cache miss", "key", key)
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		slog.Debug("Cache expired", "key", key)
		return nil, false
	}

	slog.Debug("Cache hit", "key", key)
	return e.data, true
}

// Set stores a value with the cache's default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL, overwriting any entry.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.store[key] = entry{data: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	slog.Debug("Cache set", "key", key, "ttl", ttl)
}

// Clear removes a single entry.
func (c *Cache) Clear(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

func (c *Cache) startSweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, e := range c.store {
			if now.After(e.expiresAt) {
				delete(c.store, key)
			}
		}
		c.mu.Unlock()
	}
}

package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a string key/value cache with per-entry expiry
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Item represents a cached item with expiration
type Item struct {
	Value      string
	Expiration int64
	created    int64
}

// Expired checks if the cache item has expired at now (unix nanos)
func (item Item) Expired(now int64) bool {
	if item.Expiration == 0 {
		return false
	}
	return now > item.Expiration
}

// Options configures an in-memory cache
type Options struct {
	// DefaultExpiration applies when Set is called with a zero ttl
	DefaultExpiration time.Duration
	// PurgeWindow is the minimum interval between expired-entry sweeps
	PurgeWindow time.Duration
	// MaxItems bounds the number of entries; 0 means unbounded
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration.
// Expired entries are swept lazily on write, so no goroutine is started.
type Cache struct {
	items     map[string]Item
	mu        sync.RWMutex
	opts      Options
	lastPurge int64
	now       func() time.Time
}

// NewCache creates a new in-memory cache
func NewCache(opts Options) *Cache {
	return &Cache{
		items: make(map[string]Item),
		opts:  opts,
		now:   time.Now,
	}
}

// Set adds an item to the cache. A zero ttl uses the default expiration.
func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.opts.DefaultExpiration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	var exp int64
	if ttl > 0 {
		exp = now + int64(ttl)
	}

	if c.lastPurge == 0 {
		c.lastPurge = now
	}
	if c.opts.PurgeWindow > 0 && now-c.lastPurge > int64(c.opts.PurgeWindow) {
		c.deleteExpired(now)
	}

	// Check if we need to evict an item first
	if _, exists := c.items[key]; !exists && c.opts.MaxItems > 0 && len(c.items) >= c.opts.MaxItems {
		c.evictOldest()
	}

	c.items[key] = Item{
		Value:      value,
		Expiration: exp,
		created:    now,
	}
	return nil
}

// Get retrieves an item from the cache
func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || item.Expired(c.now().UnixNano()) {
		return "", false, nil
	}

	return item.Value, true, nil
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// deleteExpired deletes all expired items. Caller holds c.mu.
func (c *Cache) deleteExpired(now int64) {
	for k, v := range c.items {
		if v.Expired(now) {
			delete(c.items, k)
		}
	}
	c.lastPurge = now
}

// evictOldest removes the least recently written item. Caller holds c.mu.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime int64

	firstRun := true
	for k, v := range c.items {
		if firstRun || v.created < oldestTime {
			oldestKey = k
			oldestTime = v.created
			firstRun = false
		}
	}

	if firstRun {
		return
	}

	delete(c.items, oldestKey)
}

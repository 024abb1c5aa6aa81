package cache

import (
	"log/slog"
	"sync"
	"time"
)

type ttlEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTL is a short-lived in-memory cache keyed by an arbitrary string (the
// spreadsheet source location, for the listing table). Every entry carries its
// own expiry timestamp; expired entries are dropped on lookup.
type TTL[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]ttlEntry[T]
}

// NewTTL creates a cache whose entries live for ttl. A ttl <= 0 disables
// caching: Get never hits and Set is a no-op.
func NewTTL[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]ttlEntry[T]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	var zero T
	if c == nil || c.ttl <= 0 {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		slog.Debug("Cache expired", "key", key, "expired_at", entry.expiresAt)
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key with a fresh expiry timestamp.
func (c *TTL[T]) Set(key string, value T) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = ttlEntry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// ExpiresAt returns the expiry timestamp of key, if cached.
func (c *TTL[T]) ExpiresAt(key string) (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return entry.expiresAt, ok
}

// GetOrFetch returns the cached value for key or calls fetch and caches its
// result. Errors are never cached. The bool reports a cache hit.
func (c *TTL[T]) GetOrFetch(key string, fetch FetchFunc[T]) (T, bool, error) {
	if v, ok := c.Get(key); ok {
		slog.Debug("Cache hit", "key", key)
		return v, true, nil
	}

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.Set(key, v)
	return v, false, nil
}

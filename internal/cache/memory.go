package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory provider when no limit is configured.
const DefaultMaxEntries = 256

type memoryItem struct {
	value     []byte
	expiresAt time.Time
	storedAt  time.Time
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// MemoryProvider is a process-local Provider with TTLs and a size bound.
// When full, the oldest entry is evicted.
type MemoryProvider struct {
	mu         sync.RWMutex
	data       map[string]memoryItem
	maxEntries int
	now        func() time.Time
}

// NewMemoryProvider creates an in-memory cache holding at most maxEntries values.
func NewMemoryProvider(maxEntries int) *MemoryProvider {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryProvider{data: make(map[string]memoryItem), maxEntries: maxEntries, now: time.Now}
}

// Get retrieves a copy of a cached value if present and not expired.
func (c *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || it.expired(c.now()) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a value with optional TTL.
func (c *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value, ttl)
	return nil
}

// SetNX stores the value only if the key is absent or expired.
func (c *MemoryProvider) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.data[key]; ok && !it.expired(c.now()) {
		return false, nil
	}
	c.store(key, value, ttl)
	return true, nil
}

// Del removes an entry.
func (c *MemoryProvider) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Close drops every entry.
func (c *MemoryProvider) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]memoryItem)
	return nil
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (c *MemoryProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// store must be called with mu held.
func (c *MemoryProvider) store(key string, value []byte, ttl time.Duration) {
	now := c.now()
	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxEntries {
		c.evict(now)
	}
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	c.data[key] = memoryItem{value: append([]byte(nil), value...), expiresAt: expires, storedAt: now}
}

func (c *MemoryProvider) evict(now time.Time) {
	oldestKey := ""
	var oldest time.Time
	for k, it := range c.data {
		if it.expired(now) {
			delete(c.data, k)
			continue
		}
		if oldestKey == "" || it.storedAt.Before(oldest) {
			oldestKey, oldest = k, it.storedAt
		}
	}
	if len(c.data) >= c.maxEntries && oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

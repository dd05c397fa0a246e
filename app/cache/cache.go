package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.createdAt.Add(e.ttl))
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is an in-memory TTL store. Entries are evicted lazily when read after
// expiry; there is no size bound.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !e.expired(c.now()) {
		c.hits++
		return e.value, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.misses++
	return nil, false
}

// GetAs is Get with a type check. An entry holding another type counts as a
// miss and is evicted.
func GetAs[T any](c *Cache, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !e.expired(c.now()) {
		if v, typed := e.value.(T); typed {
			c.hits++
			return v, true
		}
	}
	if ok {
		delete(c.entries, key)
	}
	c.misses++

	var zero T
	return zero, false
}

func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, createdAt: c.now(), ttl: ttl}
}

// Clear drops every entry. Hit and miss counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Key builds a deterministic cache key for an operation and its ordered
// arguments. Arguments are separated by a unit separator before hashing so
// ("ab", "c") and ("a", "bc") never collide.
func Key(operation string, args ...string) string {
	h := sha256.Sum256([]byte(strings.Join(args, "\x1f")))
	return operation + ":" + hex.EncodeToString(h[:12])
}

// List joins a list argument for use with Key.
func List(items []string) string {
	return strings.Join(items, ",")
}

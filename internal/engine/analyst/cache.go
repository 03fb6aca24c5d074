package analyst

import (
	"sync"
	"time"

	"peregrine/internal/decision"
)

// Cache memoizes analyst decisions per symbol. Model calls are the
// most expensive thing the pipeline does, so results are reused for a
// multi-hour TTL.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	nowFn func() time.Time
}

type cacheEntry struct {
	decision *decision.Decision
	expires  time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 3 * time.Hour
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		nowFn:   time.Now,
	}
}

func (c *Cache) Get(symbol string) (*decision.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[symbol]
	if !ok {
		return nil, false
	}
	if c.nowFn().After(e.expires) {
		delete(c.entries, symbol)
		return nil, false
	}
	return e.decision, true
}

func (c *Cache) Put(symbol string, d *decision.Decision) {
	c.mu.Lock()
	c.entries[symbol] = cacheEntry{decision: d, expires: c.nowFn().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

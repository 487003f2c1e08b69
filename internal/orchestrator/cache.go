package orchestrator

import (
	"sync"
	"time"
)

type cacheEntry struct {
	w       Working
	expires time.Time
}

// cache holds rebuilt working sets for a bounded time. The store stays authoritative;
// every stage write replaces or drops the entry.
type cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]cacheEntry
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{ttl: ttl, now: now, items: make(map[string]cacheEntry)}
}

func (c *cache) get(id string) (Working, bool) {
	if c.ttl <= 0 {
		return Working{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[id]
	if !ok {
		return Working{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.items, id)
		return Working{}, false
	}
	return e.w, true
}

func (c *cache) put(id string, w Working) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = cacheEntry{w: w, expires: c.now().Add(c.ttl)}
	// sweep
	for k, e := range c.items {
		if !c.now().Before(e.expires) {
			delete(c.items, k)
		}
	}
}

func (c *cache) drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

package wgapi

import (
	"sync"
	"time"
)

// responseCache — короткоживущий кэш сырых ответов API, чтобы не дёргать
// Wargaming на каждый запрос клиента (аналог memcached-прослойки).
type responseCache struct {
	mu  sync.RWMutex
	m   map[string]cacheEntry
	ttl time.Duration
}

type cacheEntry struct {
	body []byte
	exp  time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{m: make(map[string]cacheEntry), ttl: ttl}
}

func (c *responseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		return nil, false
	}
	return e.body, true
}

func (c *responseCache) Set(key string, body []byte) {
	c.mu.Lock()
	c.m[key] = cacheEntry{body: body, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

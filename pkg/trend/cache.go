package trend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
)

const (
	// DefaultCacheTTL is how long a computed score is served without refetching.
	DefaultCacheTTL = 5 * time.Minute
	cacheName       = "trend-scores"
	cacheLimit      = 4096
)

// Cache memoizes scores per symbol for a fixed TTL. It is safe for concurrent
// use; Take collapses concurrent misses of one symbol into a single fetch.
type Cache struct {
	ttl time.Duration

	mu    sync.RWMutex
	inner *collection.Cache
}

// NewCache builds a cache with the given TTL (DefaultCacheTTL when <= 0).
func NewCache(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	inner, err := newInner(ttl)
	if err != nil {
		return nil, err
	}
	return &Cache{ttl: ttl, inner: inner}, nil
}

func newInner(ttl time.Duration) (*collection.Cache, error) {
	c, err := collection.NewCache(ttl, collection.WithName(cacheName), collection.WithLimit(cacheLimit))
	if err != nil {
		return nil, fmt.Errorf("trend: build cache: %w", err)
	}
	return c, nil
}

// TTL returns the configured expiry.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) current() *collection.Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner
}

// Get returns the cached score for symbol if it has not expired.
func (c *Cache) Get(symbol string) (Score, bool) {
	v, ok := c.current().Get(cacheKey(symbol))
	if !ok {
		return Score{}, false
	}
	s, ok := v.(Score)
	return s, ok
}

// Set stores s under its symbol.
func (c *Cache) Set(s Score) {
	c.current().Set(cacheKey(s.Symbol), s)
}

// Delete evicts symbol.
func (c *Cache) Delete(symbol string) {
	c.current().Del(cacheKey(symbol))
}

// Take returns the cached score or runs fetch once and caches its result.
// Concurrent callers for the same symbol share one fetch.
func (c *Cache) Take(symbol string, fetch func() (Score, error)) (Score, error) {
	v, err := c.current().Take(cacheKey(symbol), func() (any, error) {
		return fetch()
	})
	if err != nil {
		return Score{}, err
	}
	s, ok := v.(Score)
	if !ok {
		return Score{}, fmt.Errorf("trend: cache entry for %s has type %T", symbol, v)
	}
	return s, nil
}

// Reset drops every entry. Intended for tests and administrative refreshes.
func (c *Cache) Reset() error {
	inner, err := newInner(c.ttl)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

func cacheKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

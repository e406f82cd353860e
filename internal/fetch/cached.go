// Package fetch - cached.go keeps recently scraped pages so pivot iterations do not refetch them.
package fetch

import (
	"sync"
	"time"

	"github.com/jonathan/idea-scout/internal/types"
)

// DefaultPageCacheTTL bounds how long a scraped page is reused.
const DefaultPageCacheTTL = 30 * time.Minute

// PageCache is an in-process URL → page cache. Only successful pages are stored.
type PageCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	page      types.ScrapedPage
	expiresAt time.Time
}

// NewPageCache creates a cache. A non-positive ttl uses DefaultPageCacheTTL.
func NewPageCache(ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageCacheTTL
	}
	return &PageCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns a fresh cached page.
func (c *PageCache) Get(url string) (types.ScrapedPage, bool) {
	if c == nil {
		return types.ScrapedPage{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return types.ScrapedPage{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, url)
		return types.ScrapedPage{}, false
	}
	return entry.page, true
}

// Put stores a successful page; failures are ignored so they are retried next time.
func (c *PageCache) Put(page types.ScrapedPage) {
	if c == nil || !page.Success {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[page.URL] = cacheEntry{page: page, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops a URL from the cache.
func (c *PageCache) Invalidate(url string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *PageCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package functions

import (
	"sync"

	"github.com/sambeau/filterlang/pkg/filterlang/pcre"
)

// regexCache keeps compiled patterns keyed by flags and source, evicting the
// least recently used entry when full. Failed compilations are cached too so
// that a broken pattern in a hot rule is not translated on every call.
type regexCache struct {
	mu      sync.Mutex
	entries map[string]*cachedRegex
	maxSize int
	clock   uint64
}

// cachedRegex wraps a compilation result with metadata
type cachedRegex struct {
	re       *pcre.Regexp
	err      error
	lastUsed uint64
}

// newRegexCache creates a cache holding up to maxSize patterns. A maxSize of
// zero disables caching.
func newRegexCache(maxSize int) *regexCache {
	return &regexCache{
		entries: make(map[string]*cachedRegex),
		maxSize: maxSize,
	}
}

func cacheKey(pattern, flags string) string {
	return flags + "\x00" + pattern
}

// get retrieves a compilation result if one is cached.
func (c *regexCache) get(pattern, flags string) (cachedRegex, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, exists := c.entries[cacheKey(pattern, flags)]
	if !exists {
		return cachedRegex{}, false
	}
	c.clock++
	cached.lastUsed = c.clock
	return *cached, true
}

// put adds a result to the cache, evicting the least recently used if at capacity
func (c *regexCache) put(pattern, flags string, re *pcre.Regexp, err error) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(pattern, flags)
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	c.clock++
	c.entries[key] = &cachedRegex{re: re, err: err, lastUsed: c.clock}
}

// evictLRU removes the least recently used entry (caller must hold lock)
func (c *regexCache) evictLRU() {
	var oldestKey string
	var oldestTime uint64
	first := true

	for key, cached := range c.entries {
		if first || cached.lastUsed < oldestTime {
			oldestKey = key
			oldestTime = cached.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// size returns the current number of cached patterns
func (c *regexCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

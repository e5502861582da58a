// Package cache memoizes classification results for a short TTL so that
// repeated phrasing does not burn remote classifier quota.
package cache

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kairosvoice/attune/pkg/emotion"
)

// Key derives the cache key for an utterance. The text is trimmed and
// lowercased first so inputs differing only in case or surrounding
// whitespace share an entry, then hashed with FNV-1a. FNV keeps the key
// stable across processes, unlike a language-level hash.
func Key(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	return strconv.FormatUint(h.Sum64(), 16)
}

type entry struct {
	result     emotion.Result
	insertedAt time.Time
}

// ResultCache is a TTL cache of classification results. Entries are
// evicted lazily on read; Sweep clears expired entries in bulk. An entry
// past its TTL is never returned.
type ResultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func New(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *ResultCache) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the cached result for key, evicting and reporting a miss
// when the entry has outlived the TTL.
func (c *ResultCache) Get(key string) (emotion.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return emotion.Result{}, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return emotion.Result{}, false
	}
	return e.result, true
}

// Put inserts or overwrites the entry for key.
func (c *ResultCache) Put(key string, result emotion.Result) {
	c.mu.Lock()
	c.entries[key] = entry{result: result, insertedAt: c.now()}
	c.mu.Unlock()
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) > c.ttl {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len returns the current entry count, expired entries included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured entry lifetime.
func (c *ResultCache) TTL() time.Duration { return c.ttl }

package specsource

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/erraggy/toolsetgen/spec"
)

// Key identifies a cached document.
type Key struct {
	Provider string
	API      string
}

func (k Key) String() string {
	return k.Provider + "/" + k.API
}

// Cache holds raw documents for the lifetime of one run. Concurrent requests
// for the same key share a single fetch. Failed fetches are not cached.
//
// Cached documents are shared between callers and must not be mutated;
// processors work on a clone.
type Cache struct {
	fetcher Fetcher

	mu      sync.RWMutex
	entries map[Key]spec.RawSpec
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache returns an empty cache backed by f.
func NewCache(f Fetcher) *Cache {
	return &Cache{fetcher: f, entries: map[Key]spec.RawSpec{}}
}

// Get returns the document for key, fetching source on the first request.
// hit reports whether the document was already cached.
func (c *Cache) Get(ctx context.Context, key Key, source string) (raw spec.RawSpec, hit bool, err error) {
	c.mu.RLock()
	raw, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return raw, true, nil
	}

	fetched := false
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.RLock()
		cached, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		fetched = true
		doc, err := c.fetcher.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = doc
		c.mu.Unlock()
		return doc, nil
	})
	if fetched {
		c.misses.Add(1)
	}
	if err != nil {
		return nil, false, err
	}
	if !fetched {
		c.hits.Add(1)
	}
	return v.(spec.RawSpec), !fetched, nil
}

// Hits returns the number of requests served without a fetch.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the number of requests that triggered a fetch.
func (c *Cache) Misses() int64 { return c.misses.Load() }

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package cache implements the bounded, stat-validated cache shared by store
// handles.
//
// Entries are keyed by absolute path and hold the value produced for that path
// together with the path's [Fingerprint] at the time. Every lookup re-probes
// the path; an entry whose fingerprint no longer matches (including a path
// that disappeared) is discarded and resolved again. External writers
// therefore become visible without any invalidation channel, at the price of
// one stat per cached read.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/brettbedarf/dictfs/internal/util"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats counts cache activity since creation.
type Stats struct {
	Hits      uint64 // fingerprint matched
	Misses    uint64 // resolved, whether or not the result was stored
	Stale     uint64 // discarded because the fingerprint changed
	Evictions uint64 // dropped to stay within capacity
}

type record[V any] struct {
	fp    Fingerprint
	value V
}

// Cache is a reference counted LRU of fingerprinted values. Handles that share
// a Cache Acquire it when they are opened and Release it when closed; the
// entries are purged once the last reference is released.
type Cache[V any] struct {
	entries *lru.Cache[string, record[V]]
	refs    atomic.Int64

	mu        sync.Mutex // protects signature
	signature string

	hits, misses, stale, evictions atomic.Uint64
}

// New creates a cache holding at most size entries.
func New[V any](size int) (*Cache[V], error) {
	entries, err := lru.New[string, record[V]](size)
	if err != nil {
		return nil, fmt.Errorf("cache size %d: %w", size, err)
	}
	return &Cache[V]{entries: entries}, nil
}

// Acquire adds a reference and returns c.
func (c *Cache[V]) Acquire() *Cache[V] {
	c.refs.Add(1)
	return c
}

// Release drops a reference. Dropping the last one purges every entry.
func (c *Cache[V]) Release() {
	if c.refs.Add(-1) <= 0 {
		c.entries.Purge()
	}
}

// Refs returns the current reference count.
func (c *Cache[V]) Refs() int64 {
	return c.refs.Load()
}

// Bind ties the cache to a signature describing how its values were decoded.
// The first call records the signature; later calls fail unless they pass the
// same one, since cached values decoded one way are meaningless to a handle
// decoding another way.
func (c *Cache[V]) Bind(signature string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signature == "" {
		c.signature = signature
		return nil
	}
	if c.signature != signature {
		return fmt.Errorf("cache bound to %q cannot be shared with %q", c.signature, signature)
	}
	return nil
}

// Signature returns the bound signature, or "" if unbound.
func (c *Cache[V]) Signature() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signature
}

// GetOrResolve returns the cached value for path if its fingerprint still
// matches the filesystem, and otherwise calls resolve. The resolved value is
// stored only when resolve reports keep and the path exists; the stored
// fingerprint is the one probed before resolving, so a change racing with
// resolve is caught by the next lookup.
func (c *Cache[V]) GetOrResolve(path string, resolve func() (v V, keep bool, err error)) (V, error) {
	var zero V

	rec, cached := c.entries.Get(path)
	fp, exists, err := Probe(path)
	if err != nil {
		return zero, err
	}
	if cached {
		if exists && rec.fp == fp {
			c.hits.Add(1)
			return rec.value, nil
		}
		c.entries.Remove(path)
		c.stale.Add(1)
		logger := util.GetLogger("cache")
		logger.Trace().Str("path", path).Bool("exists", exists).Msg("Discarded stale entry")
	}

	c.misses.Add(1)
	v, keep, err := resolve()
	if err != nil {
		return zero, err
	}
	if keep && exists {
		if c.entries.Add(path, record[V]{fp: fp, value: v}) {
			c.evictions.Add(1)
			logger := util.GetLogger("cache")
			logger.Trace().Str("path", path).Int("size", c.entries.Len()).Msg("Evicted least recently used entry")
		}
	}
	return v, nil
}

// Invalidate drops the entry for path and reports whether one was present.
func (c *Cache[V]) Invalidate(path string) bool {
	return c.entries.Remove(path)
}

// Contains reports whether path has an entry, without validating it or
// updating recency.
func (c *Cache[V]) Contains(path string) bool {
	return c.entries.Contains(path)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.entries.Purge()
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the activity counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Stale:     c.stale.Load(),
		Evictions: c.evictions.Load(),
	}
}

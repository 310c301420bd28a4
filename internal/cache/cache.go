// Package cache provides the bounded, generation-aware cache of derived
// fact results. It is never a source of truth: a miss triggers
// recomputation through the index, never failure, and a stale entry is
// reported as a miss rather than ever served.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/telemetry"
)

// GenerationSource answers "what is the current generation for this span's
// region". The store implements it; tests substitute fakes.
type GenerationSource interface {
	RegionGeneration(span.Span) fact.Generation
}

// slot is the reusable storage behind one cache entry. Eviction returns
// the slot to the free list and the next Put refills it in place, so the
// warmed cache allocates nothing on the hot path.
type slot struct {
	key   span.Packed
	gen   fact.Generation
	facts []fact.Fact
}

// Cache maps packed spans to derived fact slices, bounded at a fixed
// capacity with LRU eviction. Entries are validated against the store's
// region generation on every hit.
type Cache struct {
	gens     GenerationSource
	order    *lru.LRU[span.Packed, *slot]
	free     []*slot
	capacity int
	metrics  *telemetry.Metrics
}

// New creates a cache of the given capacity. Zero or negative capacity is
// a configuration error. metrics may be nil.
func New(capacity int, gens GenerationSource, metrics *telemetry.Metrics) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	c := &Cache{
		gens:     gens,
		capacity: capacity,
		metrics:  metrics,
		free:     make([]*slot, 0, capacity),
	}
	// Preallocate every slot up front; eviction recycles them.
	for i := 0; i < capacity; i++ {
		c.free = append(c.free, &slot{})
	}
	order, err := lru.NewLRU(capacity, func(_ span.Packed, s *slot) {
		s.key = 0
		s.facts = s.facts[:0]
		c.free = append(c.free, s)
		c.metrics.CacheEviction()
	})
	if err != nil {
		return nil, err
	}
	c.order = order
	return c, nil
}

// Get returns the cached facts for exactly this span, if present and
// current. An entry recorded before the newest generation touching the
// span's region is stale and reported as a miss; the few extra misses are
// the price of never serving outdated data.
//
// The returned slice is slot storage owned by the cache and is reused
// after eviction; callers that hold the result past the next Put or
// Invalidate must copy it.
func (c *Cache) Get(sp span.Span) ([]fact.Fact, bool) {
	s, ok := c.order.Get(sp.Pack())
	if !ok {
		c.metrics.CacheMiss()
		return nil, false
	}
	if c.gens != nil && s.gen < c.gens.RegionGeneration(sp) {
		// Stale: drop it so the slot is reusable immediately.
		c.order.Remove(sp.Pack())
		c.metrics.CacheMiss()
		return nil, false
	}
	c.metrics.CacheHit()
	return s.facts, true
}

// Put stores the derived facts for sp at the given generation, evicting
// the least-recently-used entry when full. Eviction is a normal operation,
// never an error. The facts are copied into slot storage; the caller's
// slice is not retained.
func (c *Cache) Put(sp span.Span, gen fact.Generation, facts []fact.Fact) {
	key := sp.Pack()
	if s, ok := c.order.Peek(key); ok {
		s.gen = gen
		s.facts = append(s.facts[:0], facts...)
		c.order.Get(key) // refresh recency
		return
	}

	if len(c.free) == 0 {
		// Full: evict the LRU entry, whose slot lands back on the free
		// list via the eviction callback.
		c.order.RemoveOldest()
	}
	n := len(c.free)
	s := c.free[n-1]
	c.free = c.free[:n-1]
	s.key = key
	s.gen = gen
	s.facts = append(s.facts[:0], facts...)
	c.order.Add(key, s)
}

// Invalidate removes every entry whose span overlaps sp. Conservative
// any-overlap semantics: exact-match invalidation would keep more entries
// alive but risks serving results derived from text that changed.
func (c *Cache) Invalidate(sp span.Span) int {
	removed := 0
	for _, key := range c.order.Keys() {
		if key.Unpack().Overlaps(sp) {
			c.order.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, never exceeding capacity.
func (c *Cache) Len() int {
	return c.order.Len()
}

// Capacity returns the fixed entry budget.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Purge drops every entry, returning all slots to the free list.
func (c *Cache) Purge() {
	c.order.Purge()
}

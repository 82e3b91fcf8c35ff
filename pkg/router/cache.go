package router

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/navkit/pkg/routepath"
)

const (
	// DefaultCacheSize is the default number of cached URL lookups.
	DefaultCacheSize = 100

	// maxRankedSets bounds how many distinct route sets keep a ranked list.
	maxRankedSets = 10
)

// CacheStats reports cache effectiveness counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// MatchCache memoizes Match. Lookups are keyed by route-set identity and
// URL, so cached and uncached lookups always agree. It is safe for
// concurrent use.
type MatchCache struct {
	entries *lru.Cache[string, *RouteMatch]

	mu          sync.Mutex
	ranked      map[uint64][]rankedRoute
	rankedOrder []uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewMatchCache creates a cache holding at most size URL lookups. A size
// of zero or less uses DefaultCacheSize.
func NewMatchCache(size int) *MatchCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c := &MatchCache{
		ranked: make(map[uint64][]rankedRoute),
	}
	// Only fails for a non-positive size.
	c.entries, _ = lru.NewWithEvict(size, func(string, *RouteMatch) {
		c.evictions.Add(1)
	})
	return c
}

// Match returns the best match for url among routes, or nil.
func (c *MatchCache) Match(url string, routes []*RouteDefinition) *RouteMatch {
	id := identity(routes)
	pathname, _, _ := routepath.Split(url)
	pathname = routepath.Normalize(pathname)
	key := fmt.Sprintf("%016x %s", id, pathname)

	if m, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return m.clone()
	}
	c.misses.Add(1)

	m := matchRanked(pathname, c.rankedFor(id, routes))
	c.entries.Add(key, m)
	return m.clone()
}

// Ranked returns the ranked route list for routes, reusing the cached
// ranking when the route set is unchanged.
func (c *MatchCache) Ranked(routes []*RouteDefinition) []*RouteDefinition {
	ranked := c.rankedFor(identity(routes), routes)
	out := make([]*RouteDefinition, len(ranked))
	for i, r := range ranked {
		out[i] = r.def
	}
	return out
}

func (c *MatchCache) rankedFor(id uint64, routes []*RouteDefinition) []rankedRoute {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.ranked[id]; ok {
		return r
	}
	r := rank(routes)
	c.ranked[id] = r
	c.rankedOrder = append(c.rankedOrder, id)
	if len(c.rankedOrder) > maxRankedSets {
		oldest := c.rankedOrder[0]
		c.rankedOrder = c.rankedOrder[1:]
		delete(c.ranked, oldest)
	}
	return r
}

// Clear drops every cached lookup and ranking.
func (c *MatchCache) Clear() {
	c.entries.Purge()
	c.mu.Lock()
	c.ranked = make(map[uint64][]rankedRoute)
	c.rankedOrder = nil
	c.mu.Unlock()
}

// Size returns the number of cached URL lookups.
func (c *MatchCache) Size() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *MatchCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// identity hashes the ordered route paths together with each definition's
// address, so two route sets only share cache entries when they hold the
// same definitions in the same order.
func identity(routes []*RouteDefinition) uint64 {
	d := xxhash.New()
	for _, r := range routes {
		if r == nil {
			continue
		}
		_, _ = d.WriteString(r.Path)
		_, _ = fmt.Fprintf(d, "\x1f%p\x1e", r)
	}
	return d.Sum64()
}

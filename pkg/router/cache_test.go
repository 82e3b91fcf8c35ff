package router

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCacheHitAndMiss(t *testing.T) {
	c := NewMatchCache(10)
	routes := defs("/users/:id", "*")

	first := c.Match("/users/1", routes)
	second := c.Match("/users/1", routes)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1}, c.Stats())
	assert.Equal(t, 1, c.Size())
}

func TestMatchCacheLRUEviction(t *testing.T) {
	c := NewMatchCache(2)
	routes := defs("/:x")

	c.Match("/a", routes)
	c.Match("/b", routes)
	c.Match("/c", routes)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	// "/b" and "/c" are cached, "/a" was evicted.
	c.Match("/b", routes)
	c.Match("/c", routes)
	assert.Equal(t, uint64(2), c.Stats().Hits)
	c.Match("/a", routes)
	assert.Equal(t, uint64(4), c.Stats().Misses)
	assert.Equal(t, 2, c.Size())
}

func TestMatchCachePromotesOnHit(t *testing.T) {
	c := NewMatchCache(2)
	routes := defs("/:x")

	c.Match("/a", routes)
	c.Match("/b", routes)
	c.Match("/a", routes) // promote "/a"
	c.Match("/c", routes) // evicts "/b"

	before := c.Stats().Misses
	c.Match("/a", routes)
	assert.Equal(t, before, c.Stats().Misses, "/a should still be cached")
	c.Match("/b", routes)
	assert.Equal(t, before+1, c.Stats().Misses, "/b should have been evicted")
}

func TestMatchCacheNegativeResults(t *testing.T) {
	c := NewMatchCache(4)
	routes := defs("/only")
	assert.Nil(t, c.Match("/missing", routes))
	assert.Nil(t, c.Match("/missing", routes))
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestMatchCacheRouteSetSwap(t *testing.T) {
	c := NewMatchCache(10)
	setA := defs("/page")
	setB := defs("/page") // same paths, different definitions

	a := c.Match("/page", setA)
	b := c.Match("/page", setB)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Same(t, setA[0], a.Route)
	assert.Same(t, setB[0], b.Route)
}

func TestMatchCacheReturnsCopies(t *testing.T) {
	c := NewMatchCache(4)
	routes := defs("/users/:id")

	m := c.Match("/users/1", routes)
	m.Params["id"] = "tampered"

	again := c.Match("/users/1", routes)
	assert.Equal(t, "1", again.Params["id"])
}

func TestMatchCacheRankedSetsBounded(t *testing.T) {
	c := NewMatchCache(DefaultCacheSize)
	for i := 0; i < maxRankedSets*3; i++ {
		c.Match("/x", defs(fmt.Sprintf("/set/%d", i), "/x"))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.ranked, maxRankedSets)
	assert.Len(t, c.rankedOrder, maxRankedSets)
}

func TestMatchCacheRanked(t *testing.T) {
	c := NewMatchCache(4)
	routes := defs("*", "/users/:id", "/users/profile")
	assert.Equal(t, []string{"/users/profile", "/users/:id", "*"}, paths(c.Ranked(routes)))
}

func TestMatchCacheClear(t *testing.T) {
	c := NewMatchCache(4)
	routes := defs("/:x")
	c.Match("/a", routes)
	c.Match("/b", routes)

	c.Clear()
	assert.Equal(t, 0, c.Size())
	c.mu.Lock()
	assert.Empty(t, c.ranked)
	c.mu.Unlock()
}

func TestMatchCacheDefaultSize(t *testing.T) {
	c := NewMatchCache(0)
	routes := defs("/:x")
	for i := 0; i < DefaultCacheSize+20; i++ {
		c.Match(fmt.Sprintf("/%d", i), routes)
	}
	assert.Equal(t, DefaultCacheSize, c.Size())
}

func TestMatchCacheConcurrent(t *testing.T) {
	c := NewMatchCache(16)
	routes := defs("/users/:id", "/users/profile", "*")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				url := fmt.Sprintf("/users/%d", (g*i)%40)
				m := c.Match(url, routes)
				if m == nil || m.Route.Path != "/users/:id" {
					t.Errorf("Match(%q) = %+v", url, m)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 16)
}

// Public domain.

package linker

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mopsworks/linktracklets/internal/ttree"
)

// bounds4 is a 4-D bounding box over (RA, Dec, vRA, vDec).
type bounds4 struct {
	U, L [ttree.Dims]float64
}

// cacheKey identifies a projected bounding box.  Node ids are unique only
// within their tree; the source image id disambiguates across trees.
type cacheKey struct {
	nodeID   uint32
	srcImage int
	dstImage int
}

// projCache memoizes node bounds projected from one image time to
// another.  A cache belongs to a single endpoint pair's search task and is
// never shared: projections cannot repeat across pairs, and the search is
// single-goroutine within a pair.
type projCache struct {
	c            *lru.Cache[cacheKey, bounds4]
	hits, misses int64
}

func newProjCache(size int) *projCache {
	if size <= 0 {
		size = DefaultConfig().CacheSize
	}
	c, err := lru.New[cacheKey, bounds4](size)
	if err != nil {
		// lru.New fails only on a non-positive size
		panic(err)
	}
	return &projCache{c: c}
}

func (p *projCache) lookup(k cacheKey) (bounds4, bool) {
	b, ok := p.c.Get(k)
	if ok {
		p.hits++
	} else {
		p.misses++
	}
	return b, ok
}

func (p *projCache) insert(k cacheKey, b bounds4) {
	p.c.Add(k, b)
}

package analysis

import (
	"fmt"

	"github.com/l3aro/go-cegar/pkg/cache"
)

// DefaultCacheSize bounds the entries of a caching transfer function.
const DefaultCacheSize = 10000

// CacheKeyer is implemented by states, actions and precisions whose printed
// form does not identify them. Values with equal keys must have equal
// successors.
type CacheKeyer interface {
	CacheKey() string
}

func cacheKey(v any) string {
	if k, ok := v.(CacheKeyer); ok {
		return k.CacheKey()
	}
	return fmt.Sprint(v)
}

// CachingTransFunc memoises successor computations across CEGAR
// iterations. A component is keyed by CacheKey when it has one and by its
// printed form otherwise; components are length-prefixed so that their
// boundaries cannot shift.
type CachingTransFunc[S, A, P any] struct {
	inner TransFunc[S, A, P]
	cache *cache.LRUCache
}

// NewCachingTransFunc wraps inner with an LRU cache of size entries.
func NewCachingTransFunc[S, A, P any](inner TransFunc[S, A, P], size int) *CachingTransFunc[S, A, P] {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &CachingTransFunc[S, A, P]{
		inner: inner,
		cache: cache.New(cache.Options{MaxSize: size}),
	}
}

func (c *CachingTransFunc[S, A, P]) Succ(s S, a A, prec P) ([]S, error) {
	ks, ka, kp := cacheKey(s), cacheKey(a), cacheKey(prec)
	key := fmt.Sprintf("%d:%s%d:%s%d:%s", len(ks), ks, len(ka), ka, len(kp), kp)
	if v, ok := c.cache.Get(key); ok {
		return v.([]S), nil
	}
	succs, err := c.inner.Succ(s, a, prec)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, succs)
	return succs, nil
}

// Len returns the number of cached entries.
func (c *CachingTransFunc[S, A, P]) Len() int { return c.cache.Len() }

// Stats reports cache hits and misses.
func (c *CachingTransFunc[S, A, P]) Stats() cache.Stats { return c.cache.Stats() }

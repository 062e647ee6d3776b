package fetch

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of pages a CachingFetcher keeps.
const DefaultCacheSize = 256

// CachingFetcher remembers recent successful fetches so that a URL shared
// by several sites is downloaded once. At most size pages are kept; the
// least recently used page is evicted first. Concurrent requests for the
// same URL share one underlying fetch. Failures are not cached.
type CachingFetcher struct {
	next  Fetcher
	group singleflight.Group
	pages *lru.Cache[string, string]
	hits  atomic.Int64
}

// NewCachingFetcher wraps next with an in-memory LRU cache of size pages.
// A size below 1 uses DefaultCacheSize.
func NewCachingFetcher(next Fetcher, size int) *CachingFetcher {
	if size < 1 {
		size = DefaultCacheSize
	}
	pages, err := lru.New[string, string](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &CachingFetcher{
		next:  next,
		pages: pages,
	}
}

// Fetch implements Fetcher.
func (c *CachingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := c.pages.Get(url); ok {
		c.hits.Add(1)
		return body, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		body, err := c.next.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		c.pages.Add(url, body)
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil //nolint:forcetypeassert // the group only stores strings
}

// Len returns the number of cached pages.
func (c *CachingFetcher) Len() int {
	return c.pages.Len()
}

// Hits returns how many fetches were answered from the cache.
func (c *CachingFetcher) Hits() int {
	return int(c.hits.Load())
}

var _ Fetcher = (*CachingFetcher)(nil)

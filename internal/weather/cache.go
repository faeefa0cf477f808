package weather

import (
	"context"
	"strings"
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultGeocodeCacheSize is the default number of cached geocode results.
const DefaultGeocodeCacheSize = 256

// CachingClient memoizes geocode lookups behind an LRU cache. Forecast
// calls pass through untouched since current conditions go stale
// immediately. Empty geocode results are cached too; a city the provider
// does not know will not be known on the next attempt either.
type CachingClient struct {
	Client

	mu    sync.Mutex
	cache *lru.Cache
}

// NewCachingClient wraps inner with a geocode cache of the given size.
func NewCachingClient(inner Client, size int) *CachingClient {
	if size <= 0 {
		size = DefaultGeocodeCacheSize
	}
	return &CachingClient{
		Client: inner,
		cache:  lru.New(size),
	}
}

// Geocode returns the cached result for the normalized city name, or
// consults the inner client and caches what it finds. Lookup errors are
// never cached.
func (c *CachingClient) Geocode(ctx context.Context, name string) ([]Location, error) {
	key := lru.Key(strings.ToLower(strings.TrimSpace(name)))

	c.mu.Lock()
	if cached, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		locations, _ := cached.([]Location)
		return locations, nil
	}
	c.mu.Unlock()

	locations, err := c.Client.Geocode(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache.Add(key, locations)
	c.mu.Unlock()

	return locations, nil
}

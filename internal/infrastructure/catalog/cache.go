package catalog

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"RequisiteGraph/internal/domain"
	"RequisiteGraph/internal/ports"
)

// CachingFetcher memoizes department markup for a TTL so that repeated
// cross-department lookups of one department download it once.
type CachingFetcher struct {
	next  ports.CatalogFetcher
	cache *gocache.Cache
}

var _ ports.CatalogFetcher = (*CachingFetcher)(nil)

// NewCachingFetcher wraps next with an in-memory cache.
func NewCachingFetcher(next ports.CatalogFetcher, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// FetchDepartment serves from cache when possible. Failures are never cached.
func (c *CachingFetcher) FetchDepartment(ctx context.Context, department string) (string, error) {
	key := domain.NormalizeDepartment(department)
	if val, found := c.cache.Get(key); found {
		return val.(string), nil
	}

	markup, err := c.next.FetchDepartment(ctx, key)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, markup)
	return markup, nil
}

// Flush drops every cached page.
func (c *CachingFetcher) Flush() {
	c.cache.Flush()
}

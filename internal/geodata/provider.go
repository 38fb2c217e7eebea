package geodata

import (
	"context"
	"errors"

	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
)

// CachedProvider puts a Cache in front of a Provider. Found buildings and
// definitive misses are cached; transport errors are not.
type CachedProvider struct {
	next   Provider
	cache  *Cache
	logger *zap.Logger
}

// NewCachedProvider creates a caching provider
func NewCachedProvider(next Provider, cache *Cache, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, logger: logger}
}

// Lookup serves from the cache or delegates and records the result
func (p *CachedProvider) Lookup(ctx context.Context, addr domain.Address) (domain.BuildingAttributes, error) {
	if entry, ok := p.cache.Get(addr); ok {
		p.logger.Debug("Building cache hit", zap.String("address", addr.String()))
		if !entry.Found {
			return domain.BuildingAttributes{}, domain.ErrBuildingNotFound
		}
		return entry.Building, nil
	}

	building, err := p.next.Lookup(ctx, addr)
	switch {
	case err == nil:
		p.cache.Add(addr, CacheEntry{Building: building, Found: true})
	case errors.Is(err, domain.ErrBuildingNotFound):
		p.cache.Add(addr, CacheEntry{Found: false})
	}
	return building, err
}

// Cache exposes the underlying cache for maintenance endpoints and jobs
func (p *CachedProvider) Cache() *Cache {
	return p.cache
}

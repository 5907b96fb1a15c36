package sources

import (
	"context"
	"log"
	"time"

	"github.com/slabworth/compengine/internal/cache"
	"github.com/slabworth/compengine/internal/model"
)

// CachedAdapter decorates an Adapter with the result cache. Fresh hits
// skip the network entirely; only successful fetches are written back,
// so a transient failure never shadows a prior good answer.
type CachedAdapter struct {
	inner Adapter
	cache *cache.ResultCache
	ttl   time.Duration
}

// WithCache wraps adapter so its results are served from c for ttl.
func WithCache(adapter Adapter, c *cache.ResultCache, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{inner: adapter, cache: c, ttl: ttl}
}

func (a *CachedAdapter) Source() string { return a.inner.Source() }

func (a *CachedAdapter) FetchComps(ctx context.Context, query model.PricingQuery) (*model.SourceResult, error) {
	var cached model.SourceResult
	hit, err := a.cache.Get(a.inner.Source(), query, &cached)
	if err != nil {
		log.Printf("sources: %s cache read: %v", a.inner.Source(), err)
	}
	if hit {
		return &cached, nil
	}

	res, err := a.inner.FetchComps(ctx, query)
	if err != nil {
		return nil, err
	}

	if res != nil && res.Error == "" {
		if err := a.cache.Set(a.inner.Source(), query, res, a.ttl); err != nil {
			log.Printf("sources: %s cache write: %v", a.inner.Source(), err)
		}
	}
	return res, nil
}

package enrich

import (
	"context"
	"time"

	"gem-finder/internal/common/cache"
	"gem-finder/internal/gems"
)

// CachedDetailFetcher serves details from the cache before asking next.
// Cache failures are logged and never fail a fetch.
type CachedDetailFetcher struct {
	next   DetailFetcher
	cache  cache.Cache
	ttl    time.Duration
	logger Logger
}

func NewCachedDetailFetcher(next DetailFetcher, c cache.Cache, ttl time.Duration, log Logger) *CachedDetailFetcher {
	return &CachedDetailFetcher{next: next, cache: c, ttl: ttl, logger: log}
}

func (f *CachedDetailFetcher) FetchDetail(ctx context.Context, candidateID string) (*gems.Detail, error) {
	key := cache.Key("detail", candidateID)

	var cached gems.Detail
	found, err := f.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		f.logger.Warn("detail cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	if found {
		return &cached, nil
	}

	detail, err := f.next.FetchDetail(ctx, candidateID)
	if err != nil || detail == nil {
		return detail, err
	}

	if err := f.cache.SetJSON(ctx, key, detail, f.ttl); err != nil {
		f.logger.Warn("detail cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
	return detail, nil
}

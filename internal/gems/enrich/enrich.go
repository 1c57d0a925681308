// Package enrich fetches per-candidate detail for filter survivors and
// turns them into gems.
package enrich

import (
	"context"
	"time"

	"gem-finder/internal/common/metrics"
	"gem-finder/internal/gems"
	"gem-finder/internal/resilience"

	"golang.org/x/sync/errgroup"
)

// DetailFetcher loads review excerpts, photos and map data for a candidate.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, candidateID string) (*gems.Detail, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Config struct {
	Concurrency int
	Policy      resilience.Policy
}

func DefaultConfig() Config {
	return Config{Concurrency: gems.MaxGems, Policy: resilience.Tight()}
}

type Enricher struct {
	fetcher   DetailFetcher
	config    Config
	logger    Logger
	retryOpts []resilience.Option
}

// NewEnricher builds an enricher. A nil fetcher yields gems built from
// candidate data alone.
func NewEnricher(fetcher DetailFetcher, cfg Config, log Logger, retryOpts ...resilience.Option) *Enricher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = gems.MaxGems
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = resilience.Tight()
	}
	return &Enricher{
		fetcher:   fetcher,
		config:    cfg,
		logger:    log,
		retryOpts: retryOpts,
	}
}

// Enrich fetches details for every candidate concurrently. A candidate
// whose fetch fails after retries is dropped; the others keep their
// input order.
func (e *Enricher) Enrich(ctx context.Context, candidates []gems.ScoredCandidate) []gems.Gem {
	startTime := time.Now()

	if e.fetcher == nil {
		out := make([]gems.Gem, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, GemFrom(c, nil))
		}
		return out
	}

	results := make([]*gems.Gem, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.config.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			detail, err := resilience.Do(ctx, e.config.Policy, func(ctx context.Context) (*gems.Detail, error) {
				return e.fetcher.FetchDetail(ctx, c.ID)
			}, e.retryOpts...)
			if err != nil {
				metrics.EnrichmentItems.WithLabelValues("dropped").Inc()
				e.logger.Warn("detail fetch failed, dropping candidate", map[string]interface{}{
					"candidateId": c.ID,
					"name":        c.Name,
					"error":       err.Error(),
				})
				return nil
			}
			metrics.EnrichmentItems.WithLabelValues("enriched").Inc()
			gem := GemFrom(c, detail)
			results[i] = &gem
			return nil
		})
	}
	_ = g.Wait()

	out := make([]gems.Gem, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	e.logger.Info("enrichment completed", map[string]interface{}{
		"requested":  len(candidates),
		"enriched":   len(out),
		"durationMs": time.Since(startTime).Milliseconds(),
	})
	return out
}

// GemFrom merges a candidate with its detail. Detail wins for address,
// coordinates and media; the candidate supplies rating and review count.
func GemFrom(c gems.ScoredCandidate, d *gems.Detail) gems.Gem {
	g := gems.Gem{
		Name:        c.Name,
		Address:     c.Address,
		Coordinates: c.Location,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
	}
	if d != nil {
		if g.Name == "" {
			g.Name = d.Name
		}
		if d.Address != "" {
			g.Address = d.Address
		}
		if !d.Coordinates.IsZero() {
			g.Coordinates = d.Coordinates
		}
		g.ReviewExcerpts = d.ReviewExcerpts
		g.MapURL = d.MapURL
		g.PhotoURLs = d.PhotoURLs
	}
	if g.MapURL == "" {
		g.MapURL = gems.MapURLFor(g.Coordinates)
	}
	g.Normalize()
	return g
}

// Package app assembles the pipeline and its collaborators from config.
package app

import (
	"context"
	"fmt"

	"gem-finder/internal/collaborators/details"
	"gem-finder/internal/collaborators/gemini"
	"gem-finder/internal/collaborators/weather"
	"gem-finder/internal/common/cache"
	"gem-finder/internal/common/config"
	"gem-finder/internal/common/logger"
	"gem-finder/internal/common/observability"
	"gem-finder/internal/gems/enrich"
	"gem-finder/internal/gems/filter"
	"gem-finder/internal/pipeline"
	"gem-finder/internal/resilience"
)

// Options overrides pieces of the assembly, mostly for tests.
type Options struct {
	Generator     pipeline.Generator
	Observability *observability.Observability
}

// App is a built pipeline plus the resources it holds.
type App struct {
	Pipeline *pipeline.Orchestrator
	Redis    *cache.RedisClient
	Obs      *observability.Observability
}

// Build wires the collaborators described by cfg into an orchestrator.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	a := &App{Obs: opts.Observability}
	if a.Obs == nil {
		a.Obs = observability.NewNoop()
	}

	var store cache.Cache = cache.Noop{}
	cached := false
	if cfg.Redis.Enabled {
		a.Redis = cache.NewRedis(cfg.Redis)
		if err := a.Redis.Ping(ctx); err != nil {
			// caching is optional; keep serving without it
			log.Warn("redis unavailable, caching disabled", map[string]interface{}{
				"address": cfg.Redis.Address,
				"error":   err.Error(),
			})
		} else {
			store = a.Redis
			cached = true
			log.Info("redis connected", map[string]interface{}{"address": cfg.Redis.Address})
		}
	}

	generator := opts.Generator
	if generator == nil {
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:          cfg.GenAI.APIKey,
			Model:           cfg.GenAI.Model,
			Timeout:         config.GetDuration(cfg.GenAI.Timeout),
			Temperature:     float32(cfg.GenAI.Temperature),
			MaxOutputTokens: int32(cfg.GenAI.MaxOutputTokens),
		}, pipeline.Instructions(), log)
		if err != nil {
			return nil, fmt.Errorf("genai client: %w", err)
		}
		generator = client.WithBreaker(resilience.BreakerFromConfig("genai", cfg.Breaker, log))
	}

	pc := pipeline.ConfigFrom(cfg.Pipeline, cfg.Retry)
	deps := pipeline.Deps{
		Stages:        pipeline.DefaultStages(generator, config.GetDuration(cfg.Pipeline.StageTimeout)),
		Observability: a.Obs,
	}

	filterCfg := filter.DefaultConfig()
	if cfg.Pipeline.TopN > 0 {
		filterCfg.TopN = cfg.Pipeline.TopN
	}
	deps.Filter = filter.NewEngine(filterCfg, log)

	var fetcher enrich.DetailFetcher
	if cfg.Collaborators.Details.Enabled() {
		client := details.NewClient(cfg.Collaborators.Details).
			WithBreaker(resilience.BreakerFromConfig("details", cfg.Breaker, log))
		fetcher = enrich.NewCachedDetailFetcher(client, store, config.GetDuration(cfg.Redis.DetailTTL), log)
	}
	deps.Enricher = enrich.NewEnricher(fetcher, enrich.Config{
		Concurrency: cfg.Pipeline.EnrichConcurrency,
		Policy:      pc.Tight,
	}, log)

	if cfg.Collaborators.Weather.Enabled() {
		client := weather.NewClient(cfg.Collaborators.Weather).
			WithBreaker(resilience.BreakerFromConfig("weather", cfg.Breaker, log))
		deps.Weather = weather.NewCachedClient(client, store, config.GetDuration(cfg.Redis.ForecastTTL))
	}

	orch, err := pipeline.New(pc, deps, log)
	if err != nil {
		return nil, err
	}
	a.Pipeline = orch

	log.Info("pipeline assembled", map[string]interface{}{
		"model":   cfg.GenAI.Model,
		"weather": cfg.Collaborators.Weather.Enabled(),
		"details": cfg.Collaborators.Details.Enabled(),
		"redis":   cached,
	})
	return a, nil
}

// Ready reports whether the optional cache is reachable.
func (a *App) Ready(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Obs.Shutdown()
}

// Package weather is a client for the forecast sidecar.
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gem-finder/internal/common/cache"
	"gem-finder/internal/common/config"
	apphttp "gem-finder/internal/common/http"
	"gem-finder/internal/resilience"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SingleDay returns a range covering just d.
func SingleDay(d time.Time) DateRange {
	return DateRange{Start: d, End: d}
}

type Day struct {
	Date                     string  `json:"date"`
	Summary                  string  `json:"summary"`
	TempMinC                 float64 `json:"tempMinC"`
	TempMaxC                 float64 `json:"tempMaxC"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
	WindKph                  float64 `json:"windKph,omitempty"`
}

type Forecast struct {
	City string `json:"city"`
	Days []Day  `json:"days"`
}

// Describe renders the forecast as one line per day.
func (f *Forecast) Describe() string {
	if f == nil || len(f.Days) == 0 {
		return "no forecast data"
	}
	var b strings.Builder
	for _, d := range f.Days {
		fmt.Fprintf(&b, "%s: %s, %.0f-%.0f°C, %.0f%% chance of rain\n",
			d.Date, d.Summary, d.TempMinC, d.TempMaxC, d.PrecipitationProbability)
	}
	return strings.TrimRight(b.String(), "\n")
}

type Client struct {
	http    *apphttp.Client
	breaker *resilience.Breaker
}

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{
		http: apphttp.NewClient("weather", cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout)),
	}
}

// NewFromHTTP wraps a preconfigured HTTP client.
func NewFromHTTP(hc *apphttp.Client) *Client {
	return &Client{http: hc}
}

func (c *Client) WithBreaker(b *resilience.Breaker) *Client {
	c.breaker = b
	return c
}

// Forecast fetches the forecast for city by name over r.
func (c *Client) Forecast(ctx context.Context, city string, r DateRange) (*Forecast, error) {
	query := url.Values{}
	query.Set("city", city)
	query.Set("start_date", r.Start.Format(dateLayout))
	query.Set("end_date", r.End.Format(dateLayout))

	return resilience.Guard(c.breaker, func() (*Forecast, error) {
		var forecast Forecast
		if err := c.http.GetJSON(ctx, "/forecast", query, &forecast); err != nil {
			return nil, err
		}
		if forecast.City == "" {
			forecast.City = city
		}
		return &forecast, nil
	})
}

// Fetcher is satisfied by Client and CachedClient.
type Fetcher interface {
	Forecast(ctx context.Context, city string, r DateRange) (*Forecast, error)
}

// CachedClient memoizes forecasts per city and range.
type CachedClient struct {
	next  Fetcher
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedClient(next Fetcher, c cache.Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: c, ttl: ttl}
}

func (c *CachedClient) Forecast(ctx context.Context, city string, r DateRange) (*Forecast, error) {
	key := cache.Key("forecast", strings.ToLower(city), r.Start.Format(dateLayout), r.End.Format(dateLayout))

	var cached Forecast
	if found, err := c.cache.GetJSON(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	forecast, err := c.next.Forecast(ctx, city, r)
	if err != nil {
		return nil, err
	}
	_ = c.cache.SetJSON(ctx, key, forecast, c.ttl)
	return forecast, nil
}

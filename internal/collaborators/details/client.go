// Package details is a client for the place-detail sidecar.
package details

import (
	"context"
	"net/url"

	"gem-finder/internal/common/config"
	apphttp "gem-finder/internal/common/http"
	"gem-finder/internal/gems"
	"gem-finder/internal/resilience"
)

type Client struct {
	http    *apphttp.Client
	breaker *resilience.Breaker
}

func NewClient(cfg config.ServiceConfig) *Client {
	return &Client{
		http: apphttp.NewClient("details", cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout)),
	}
}

func NewFromHTTP(hc *apphttp.Client) *Client {
	return &Client{http: hc}
}

func (c *Client) WithBreaker(b *resilience.Breaker) *Client {
	c.breaker = b
	return c
}

// FetchDetail loads GET /places/{id}.
func (c *Client) FetchDetail(ctx context.Context, candidateID string) (*gems.Detail, error) {
	return resilience.Guard(c.breaker, func() (*gems.Detail, error) {
		var detail gems.Detail
		if err := c.http.GetJSON(ctx, "/places/"+url.PathEscape(candidateID), nil, &detail); err != nil {
			return nil, err
		}
		return &detail, nil
	})
}

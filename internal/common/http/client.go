package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "gem-finder/internal/common/errors"

	"github.com/goccy/go-json"
)

// Client is a small JSON-over-HTTP client for sidecar collaborators.
// Timeouts are enforced per request through the context.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	service    string
	timeout    time.Duration
}

func NewClient(service, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		service:    service,
		timeout:    timeout,
	}
}

// WithHTTPClient swaps the transport, e.g. for httptest servers.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// GetJSON issues GET baseURL+path?query and decodes the body into dest.
// Non-2xx responses and transport failures become TRANSIENT_EXTERNAL
// errors carrying the status used for retry classification.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewTransientExternalError(c.service, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		status := 0
		if stderrors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		return apperrors.NewTransientExternalError(c.service, status, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewTransientExternalError(c.service, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperrors.NewTransientExternalError(c.service, 0, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

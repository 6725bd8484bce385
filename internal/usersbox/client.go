package usersbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"usersbox-bot/internal/metrics"
)

const (
	endpointGetMe   = "getMe"
	endpointSources = "sources"
	endpointSearch  = "search"
	endpointExplain = "explain"
)

// APIError is returned for any non-2xx answer from the provider.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("usersbox api error: %s (status: %d)", e.Body, e.StatusCode)
}

// StatusCode extracts the provider HTTP status from err, or 0 when err is not
// an APIError (transport failures, decoding failures).
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Log        *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Log: log.Named("usersbox"),
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := fmt.Sprintf("%s/%s", c.BaseURL, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// usersbox expects the raw app token, without a scheme prefix.
	req.Header.Set("Authorization", c.Token)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	metrics.ProviderLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Log.Warn("provider returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 200)),
		)
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", endpoint, err)
	}
	return nil
}

// GetAppInfo returns the provider account: title, balance and activity flag.
func (c *Client) GetAppInfo(ctx context.Context) (*AppInfoResponse, error) {
	var resp AppInfoResponse
	if err := c.doRequest(ctx, endpointGetMe, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListSources(ctx context.Context) (*SourcesResponse, error) {
	var resp SourcesResponse
	if err := c.doRequest(ctx, endpointSources, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Explain returns only the number of matching documents. It is free of charge
// on the provider side.
func (c *Client) Explain(ctx context.Context, q string) (*ExplainResponse, error) {
	var resp ExplainResponse
	if err := c.doRequest(ctx, endpointExplain, url.Values{"q": {q}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Search(ctx context.Context, q string) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.doRequest(ctx, endpointSearch, url.Values{"q": {q}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Copyright (C) 2025 PartSignal Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package z2 is the client for the Z2Data parts-intelligence gateway.
//
// Every part- and company-oriented operation follows the same two-phase
// protocol: validate the raw entity to obtain an opaque internal ID, then
// fetch details with that ID. IDs are owned by the single fetch that
// follows their validation and are never cached across queries.
package z2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production gateway.
	DefaultBaseURL = "https://gateway.z2data.com"

	// DefaultTimeout bounds each network call. Validation and fetch are
	// separate calls, so a two-phase operation may take up to twice this.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit caps outbound gateway calls per second.
	DefaultRateLimit = rate.Limit(10)

	// DefaultRateBurst is the limiter burst size.
	DefaultRateBurst = 20
)

// Config holds gateway connection settings.
type Config struct {
	// APIKey authenticates every request via the ApiKey query parameter.
	APIKey string `validate:"required"`

	// BaseURL is the gateway root, without a trailing slash.
	BaseURL string `validate:"required,url"`

	// Timeout is the per-call request timeout.
	Timeout time.Duration `validate:"required"`

	// RateLimit and RateBurst configure the egress limiter.
	RateLimit rate.Limit `validate:"required"`
	RateBurst int        `validate:"required,min=1"`
}

// ConfigFromEnv builds a Config from Z2_API_KEY and Z2_BASE_URL.
//
// Outputs:
//
//	Config - Validated configuration.
//	error - Non-nil if the API key is missing or validation fails.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		APIKey:    os.Getenv("Z2_API_KEY"),
		BaseURL:   os.Getenv("Z2_BASE_URL"),
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("z2: invalid config: %w", err)
	}
	return cfg, nil
}

// Client talks to the Z2Data gateway.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a gateway client.
//
// Inputs:
//
//	cfg - Connection settings. Must pass validation.
//
// Outputs:
//
//	*Client - The configured client.
//	error - Non-nil if cfg is invalid.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("z2: invalid config: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		limiter:    rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:     slog.Default(),
	}, nil
}

// buildURL assembles an endpoint URL with the API key and extra query
// parameters. keyParam exists because one legacy endpoint spells the key
// parameter differently ("APIkey" on CompanyValidation, "ApiKey" elsewhere).
func (c *Client) buildURL(endpoint, keyParam string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set(keyParam, c.cfg.APIKey)
	return c.cfg.BaseURL + endpoint + "?" + query.Encode()
}

// getJSON issues a rate-limited GET and decodes the JSON response into out.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	endpoint - Path starting with "/", used in error messages and metrics.
//	keyParam - Query parameter name for the API key.
//	query - Extra query parameters. May be nil.
//	out - Decode target. Must be a pointer.
//
// Outputs:
//
//	error - *Error on gateway or transport failure.
func (c *Client) getJSON(ctx context.Context, endpoint, keyParam string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(endpoint, keyParam, query), nil)
	if err != nil {
		return fmt.Errorf("z2: creating request for %s: %w", endpoint, err)
	}
	return c.do(req, endpoint, out)
}

// postJSON issues a rate-limited POST with a JSON body and decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("z2: marshaling request for %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(endpoint, "ApiKey", nil), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("z2: creating request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, out)
}

// do executes one gateway call with rate limiting, metrics, and error
// classification. Error messages never include the full URL, so the API
// key stays out of logs and error chains.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("z2: rate limiter: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(start)
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			recordGatewayCall(endpoint, "timeout", duration)
			return timeoutError(endpoint)
		}
		recordGatewayCall(endpoint, "transport_error", duration)
		return fmt.Errorf("z2: request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if readErr != nil {
		recordGatewayCall(endpoint, "read_error", duration)
		return fmt.Errorf("z2: reading response from %s (status %d): %w", endpoint, resp.StatusCode, readErr)
	}

	c.logger.Debug("gateway response",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_length", len(bodyBytes)),
		slog.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		recordGatewayCall(endpoint, "upstream_error", duration)
		return upstreamError(endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		recordGatewayCall(endpoint, "decode_error", duration)
		return fmt.Errorf("z2: decoding response from %s: %w", endpoint, err)
	}

	recordGatewayCall(endpoint, "success", duration)
	return nil
}

// isTimeout reports whether err carries a network timeout.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

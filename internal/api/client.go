// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/crewchat/internal/logging"
)

// DefaultBaseURL is the hosted agent server.
const DefaultBaseURL = "https://aspect-agent-server-1018338671074.europe-west1.run.app"

// MaxResponseSize caps JSON response bodies.
const MaxResponseSize = 10 * 1024 * 1024

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL is the server root, without trailing slash
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// MaxRetries for idempotent reads (default: 3 attempts)
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles per attempt (default: 500ms)
	RetryDelay time.Duration

	// UserAgent header value
	UserAgent string

	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client

	Logger *logging.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:    DefaultBaseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		UserAgent:  "crewchat/0.1",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the agent server.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	log          *logging.Logger
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
// Zero values are filled from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	def := DefaultConfig()

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	c := &Client{config: &cfg, log: cfg.Logger}
	if cfg.HTTPClient != nil {
		c.httpClient = cfg.HTTPClient
		c.streamClient = cfg.HTTPClient
		return c
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	c.httpClient = &http.Client{Transport: transport, Timeout: cfg.Timeout}
	// Streams are bounded by the caller's context and the stall watchdog.
	c.streamClient = &http.Client{Transport: transport}
	return c
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.config.BaseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}

// pathEscape escapes one dynamic path segment.
func pathEscape(s string) string {
	return url.PathEscape(s)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body interface{}) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}

// doJSON sends one request and decodes a 2xx body into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, target string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, target, body)
	if err != nil {
		return err
	}
	return c.send(ctx, c.httpClient, req, out)
}

func (c *Client) send(ctx context.Context, hc *http.Client, req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		cerr := transportError(ctx, err)
		c.log.Debug("API_REQUEST_FAILED", "method", req.Method, "path", req.URL.Path, "error", err)
		return cerr
	}
	defer resp.Body.Close()

	c.log.Debug("API_RESPONSE", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "duration", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// getJSON performs an idempotent GET with exponential backoff.
func (c *Client) getJSON(ctx context.Context, target string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay << (attempt - 1)
			c.log.Debug("API_RETRY", "path", target, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return transportError(ctx, ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = c.doJSON(ctx, http.MethodGet, target, nil, out)
		if lastErr == nil || !retryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

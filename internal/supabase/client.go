// Package supabase provides a minimal client for the Supabase REST surfaces
// the gateway depends on.
//
// FILES:
//   - client.go: API client and HTTP helpers
//   - types.go:  Request/response types
//
// Only two surfaces are used:
//   - GoTrue   GET  /auth/v1/user            (identity of a bearer token)
//   - PostgREST POST /rest/v1/rpc/<function> (quota functions)
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/starnote/ai-gateway/internal/config"
)

// ErrUnauthorized is returned when Supabase rejects the credential.
var ErrUnauthorized = errors.New("supabase: unauthorized")

// =============================================================================
// Client
// =============================================================================

// Client is the Supabase API client.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Supabase client.
// It reads SUPABASE_URL and SUPABASE_ANON_KEY from environment if not provided.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SUPABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("SUPABASE_ANON_KEY")
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: "starnote-ai-gateway/1.0",
		httpClient: &http.Client{
			Timeout: config.DefaultCollaboratorTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// =============================================================================
// API Methods
// =============================================================================

// GetUser resolves the user owning the caller's Authorization header.
// authHeader is forwarded verbatim ("Bearer <jwt>").
func (c *Client) GetUser(ctx context.Context, authHeader string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", authHeader, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

// RPC calls a PostgREST function and decodes its result into result.
// A nil result discards the response body.
func (c *Client) RPC(ctx context.Context, function string, params any, result any) error {
	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+function, "Bearer "+c.apiKey, params, result)
}

// =============================================================================
// HTTP helpers
// =============================================================================

func (c *Client) do(ctx context.Context, method, path, authHeader string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	if authHeader != "" {
		req.Header.Set(HeaderAuthorization, authHeader)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxRequestBodySize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), config.MaxErrorBodyLogLen)}
	}

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hammywammy/oslira-core/config"
	"github.com/hammywammy/oslira-core/observability"
)

// Client is the JSON request layer against the backend API. GET responses
// are cached for the configured TTL and concurrent identical GETs are
// collapsed into a single upstream request.
type Client struct {
	baseURL  string
	http     *http.Client
	auth     AuthProvider
	cache    *responseCache
	group    singleflight.Group
	observer observability.Observer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.http = client }
}

// WithObserver sets the observer for request events.
func WithObserver(obs observability.Observer) ClientOption {
	return func(c *Client) { c.observer = observability.Normalize(obs) }
}

// NewClient creates a Client from configuration. auth may be nil for
// endpoints that accept anonymous requests.
func NewClient(cfg config.APIConfig, auth AuthProvider, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout.Std()},
		auth:     auth,
		cache:    newResponseCache(cfg.CacheTTL.Std()),
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init validates the configured base URL.
func (c *Client) Init(ctx context.Context) error {
	parsed, err := url.Parse(c.baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.baseURL)
	}
	return nil
}

// Cleanup drops cached responses and closes idle connections.
func (c *Client) Cleanup(ctx context.Context) error {
	c.cache.clear()
	c.http.CloseIdleConnections()
	return nil
}

// Get performs a GET against path. A fresh cached response is returned
// without touching the network; concurrent identical requests share one
// upstream call.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	if data, ok := c.cache.get(path); ok {
		c.emit(ctx, EventCacheHit, observability.LevelDebug, map[string]any{"path": path})
		return data, nil
	}

	v, err, shared := c.group.Do(path, func() (any, error) {
		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		c.cache.put(path, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.emit(ctx, EventRequestDeduped, observability.LevelDebug, map[string]any{"path": path})
	}
	return v.([]byte), nil
}

// Post performs a POST against path with a JSON body and invalidates any
// cached GET for the same path.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	c.cache.invalidate(path)
	return data, nil
}

// LeadAnalysis is the backend's result for a single analyzed lead.
type LeadAnalysis struct {
	Username string  `json:"username"`
	Type     string  `json:"type"`
	Score    float64 `json:"score"`
	Summary  string  `json:"summary"`
}

// AnalyzeLead submits a lead for analysis and returns the result.
func (c *Client) AnalyzeLead(ctx context.Context, username, analysisType string) (*LeadAnalysis, error) {
	data, err := c.Post(ctx, "/v1/leads/analyze", map[string]string{
		"username": username,
		"type":     analysisType,
	})
	if err != nil {
		return nil, err
	}

	var analysis LeadAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	return &analysis, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		if session := c.auth.CurrentSession(); session != nil {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s %s", ErrNotAuthenticated, method, path)
	case resp.StatusCode >= 400:
		c.emit(ctx, EventRequestFailed, observability.LevelWarn, map[string]any{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrRequestFailed, method, path, resp.StatusCode)
	}

	return data, nil
}

func (c *Client) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "api.client",
		Data:   data,
	})
}

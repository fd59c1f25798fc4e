package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hammywammy/oslira-core/config"
	"github.com/hammywammy/oslira-core/observability"
)

// AuthProvider exposes the current session and user to the rest of the
// runtime and manages token exchange with the hosted auth service.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	Refresh(ctx context.Context) (*Session, error)
	CurrentSession() *Session
	CurrentUser() *User
}

// HTTPAuthProvider implements AuthProvider against the hosted auth endpoint.
// Safe for concurrent use.
type HTTPAuthProvider struct {
	url         string
	anonKey     string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	observer    observability.Observer

	mu      sync.RWMutex
	session *Session
	user    *User
}

// AuthOption configures an HTTPAuthProvider.
type AuthOption func(*HTTPAuthProvider)

// WithAuthHTTPClient overrides the underlying HTTP client.
func WithAuthHTTPClient(client *http.Client) AuthOption {
	return func(p *HTTPAuthProvider) { p.http = client }
}

// WithAuthObserver sets the observer for auth events.
func WithAuthObserver(obs observability.Observer) AuthOption {
	return func(p *HTTPAuthProvider) { p.observer = observability.Normalize(obs) }
}

// NewAuthProvider creates an HTTPAuthProvider from configuration.
func NewAuthProvider(cfg config.AuthConfig, opts ...AuthOption) *HTTPAuthProvider {
	p := &HTTPAuthProvider{
		url:         cfg.URL,
		anonKey:     cfg.AnonKey,
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: cfg.MaxRefreshAttempts,
		backoff:     cfg.RefreshBackoff.Std(),
		observer:    observability.NoOpObserver{},
	}
	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}
	if p.backoff <= 0 {
		p.backoff = time.Second
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignIn exchanges credentials for a session and stores it as current.
func (p *HTTPAuthProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	tok, err := p.requestToken(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignInFailed, err)
	}

	session, user := p.store(tok)
	p.emit(ctx, EventSignedIn, observability.LevelInfo, map[string]any{
		"user": user.Email,
	})
	return session, nil
}

// SignOut revokes the current session with the auth service and clears it
// locally. The local session is cleared even when revocation fails.
func (p *HTTPAuthProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.user = nil
	p.mu.Unlock()

	if session == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	p.emit(ctx, EventSignedOut, observability.LevelInfo, nil)
	return nil
}

// Refresh exchanges the current refresh token for a new session, retrying
// transient failures with exponential backoff up to the configured attempt
// limit.
func (p *HTTPAuthProvider) Refresh(ctx context.Context) (*Session, error) {
	p.mu.RLock()
	session := p.session
	p.mu.RUnlock()

	if session == nil || session.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}

	backoff := p.backoff
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		tok, err := p.requestToken(ctx, "refresh_token", map[string]string{
			"refresh_token": session.RefreshToken,
		})
		if err == nil {
			refreshed, _ := p.store(tok)
			p.emit(ctx, EventSessionRefreshed, observability.LevelDebug, map[string]any{
				"attempt": attempt,
			})
			return refreshed, nil
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRefreshFailed, p.maxAttempts, lastErr)
}

// CurrentSession returns the current session, or nil when signed out.
func (p *HTTPAuthProvider) CurrentSession() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// CurrentUser returns the current user, or nil when signed out.
func (p *HTTPAuthProvider) CurrentUser() *User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

func (p *HTTPAuthProvider) requestToken(ctx context.Context, grant string, body map[string]string) (*tokenResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/token?grant_type=%s", p.url, grant)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth endpoint returned %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("auth endpoint returned no access token")
	}
	return &tok, nil
}

func (p *HTTPAuthProvider) store(tok *tokenResponse) (*Session, *User) {
	session := &Session{
		ID:           newSessionID(),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}
	user := &User{ID: tok.User.ID, Email: tok.User.Email}

	p.mu.Lock()
	p.session = session
	p.user = user
	p.mu.Unlock()

	return session, user
}

func (p *HTTPAuthProvider) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	p.observer.OnEvent(ctx, observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "api.auth",
		Data:   data,
	})
}

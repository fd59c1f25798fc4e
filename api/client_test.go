package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammywammy/oslira-core/api"
	"github.com/hammywammy/oslira-core/config"
)

func clientConfig(url string) config.APIConfig {
	return config.APIConfig{
		BaseURL:  url,
		Timeout:  config.Seconds(5),
		CacheTTL: config.Seconds(60),
	}
}

type staticAuth struct {
	session *api.Session
}

func (a *staticAuth) SignIn(ctx context.Context, email, password string) (*api.Session, error) {
	return a.session, nil
}
func (a *staticAuth) SignOut(ctx context.Context) error            { return nil }
func (a *staticAuth) Refresh(ctx context.Context) (*api.Session, error) { return a.session, nil }
func (a *staticAuth) CurrentSession() *api.Session                 { return a.session }
func (a *staticAuth) CurrentUser() *api.User                       { return nil }

func TestGetCachesResponses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"leads":[]}`))
	}))
	defer server.Close()

	client := api.NewClient(clientConfig(server.URL), nil)

	for i := 0; i < 3; i++ {
		data, err := client.Get(context.Background(), "/v1/leads")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if string(data) != `{"leads":[]}` {
			t.Errorf("Get() = %q", data)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times across 3 Gets, want 1 (cached)", got)
	}
}

func TestGetDeduplicatesInFlight(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	client := api.NewClient(clientConfig(server.URL), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), "/v1/slow"); err != nil {
				t.Errorf("Get() failed: %v", err)
			}
		}()
	}

	// Give the goroutines time to coalesce on the in-flight request, then
	// let the single upstream call finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times for 5 concurrent Gets, want 1 (deduplicated)", got)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	auth := &staticAuth{session: &api.Session{
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	client := api.NewClient(clientConfig(server.URL), auth)

	if _, err := client.Get(context.Background(), "/v1/me"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	if gotAuth != "Bearer token-abc" {
		t.Errorf("Authorization = %q, want Bearer token-abc", gotAuth)
	}
	if gotRequestID == "" {
		t.Errorf("X-Request-ID header missing")
	}
}

func TestPostInvalidatesCache(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := api.NewClient(clientConfig(server.URL), nil)
	ctx := context.Background()

	client.Get(ctx, "/v1/leads")
	client.Post(ctx, "/v1/leads", map[string]string{"username": "acme"})
	client.Get(ctx, "/v1/leads")

	if got := gets.Load(); got != 2 {
		t.Errorf("GET hit %d times, want 2 (cache invalidated by POST)", got)
	}
}

func TestErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/unauthorized":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := api.NewClient(clientConfig(server.URL), nil)
	ctx := context.Background()

	if _, err := client.Get(ctx, "/unauthorized"); !errors.Is(err, api.ErrNotAuthenticated) {
		t.Errorf("Get(/unauthorized) error = %v, want ErrNotAuthenticated", err)
	}
	if _, err := client.Get(ctx, "/boom"); !errors.Is(err, api.ErrRequestFailed) {
		t.Errorf("Get(/boom) error = %v, want ErrRequestFailed", err)
	}
}

func TestAnalyzeLead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/leads/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(api.LeadAnalysis{
			Username: body["username"],
			Type:     body["type"],
			Score:    0.82,
			Summary:  "strong fit",
		})
	}))
	defer server.Close()

	client := api.NewClient(clientConfig(server.URL), nil)

	analysis, err := client.AnalyzeLead(context.Background(), "acme_corp", "deep")
	if err != nil {
		t.Fatalf("AnalyzeLead() failed: %v", err)
	}
	if analysis.Username != "acme_corp" || analysis.Type != "deep" || analysis.Score != 0.82 {
		t.Errorf("AnalyzeLead() = %+v", analysis)
	}
}

func TestInitValidatesBaseURL(t *testing.T) {
	good := api.NewClient(clientConfig("https://api.example.com"), nil)
	if err := good.Init(context.Background()); err != nil {
		t.Errorf("Init() with valid URL = %v, want nil", err)
	}

	bad := api.NewClient(clientConfig("not a url"), nil)
	if err := bad.Init(context.Background()); err == nil {
		t.Errorf("Init() with invalid URL succeeded, want error")
	}
}

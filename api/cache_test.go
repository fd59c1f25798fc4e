package api

import (
	"testing"
	"time"
)

func TestResponseCacheTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := newResponseCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.put("/v1/leads", []byte("payload"))

	if data, ok := cache.get("/v1/leads"); !ok || string(data) != "payload" {
		t.Fatalf("get() = (%q, %v), want fresh hit", data, ok)
	}

	now = now.Add(59 * time.Second)
	if _, ok := cache.get("/v1/leads"); !ok {
		t.Errorf("entry expired before its TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := cache.get("/v1/leads"); ok {
		t.Errorf("entry still served after its TTL")
	}
}

func TestResponseCacheInvalidate(t *testing.T) {
	cache := newResponseCache(time.Minute)
	cache.put("/a", []byte("1"))
	cache.put("/b", []byte("2"))

	cache.invalidate("/a")

	if _, ok := cache.get("/a"); ok {
		t.Errorf("invalidated entry still served")
	}
	if _, ok := cache.get("/b"); !ok {
		t.Errorf("unrelated entry dropped by invalidate")
	}
}

func TestResponseCacheClear(t *testing.T) {
	cache := newResponseCache(time.Minute)
	cache.put("/a", []byte("1"))

	cache.clear()

	if _, ok := cache.get("/a"); ok {
		t.Errorf("entry survived clear")
	}
}

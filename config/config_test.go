package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hammywammy/oslira-core/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.API.Timeout.Std() != 30*time.Second {
		t.Errorf("default API timeout = %v, want 30s", cfg.API.Timeout.Std())
	}
	if cfg.Queue.Concurrency != 2 {
		t.Errorf("default queue concurrency = %d, want 2", cfg.Queue.Concurrency)
	}
	if cfg.Prefs.Prefix != "oslira" {
		t.Errorf("default prefs prefix = %q, want oslira", cfg.Prefs.Prefix)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
api:
  base_url: https://api.example.com
  timeout: 5s
auth:
  url: https://auth.example.com
  anon_key: anon-123
queue:
  concurrency: 4
log:
  level: debug
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout.Std() != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout.Std())
	}
	// Unspecified values keep their defaults.
	if cfg.API.CacheTTL.Std() != 60*time.Second {
		t.Errorf("API.CacheTTL = %v, want default 60s", cfg.API.CacheTTL.Std())
	}
	if cfg.Queue.Concurrency != 4 {
		t.Errorf("Queue.Concurrency = %d, want 4", cfg.Queue.Concurrency)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadNumericDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
api:
  timeout: 10
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.API.Timeout.Std() != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s (bare number is seconds)", cfg.API.Timeout.Std())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load() of missing file succeeded, want error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "api: [not a mapping")

	if _, err := config.Load(path); err == nil {
		t.Errorf("Load() of invalid YAML succeeded, want error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OSLIRA_API_BASE_URL", "https://env.example.com")
	t.Setenv("OSLIRA_AUTH_EMAIL", "ops@example.com")
	t.Setenv("OSLIRA_QUEUE_CONCURRENCY", "8")

	cfg := config.Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() failed: %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Auth.Email != "ops@example.com" {
		t.Errorf("Auth.Email = %q", cfg.Auth.Email)
	}
	if cfg.Queue.Concurrency != 8 {
		t.Errorf("Queue.Concurrency = %d, want 8", cfg.Queue.Concurrency)
	}
}

func TestApplyEnvFromDotenvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "OSLIRA_AUTH_ANON_KEY=dotenv-key\n")

	// Guard against pollution from the host environment.
	t.Setenv("OSLIRA_AUTH_ANON_KEY", "")
	os.Unsetenv("OSLIRA_AUTH_ANON_KEY")

	cfg := config.Default()
	if err := cfg.ApplyEnv(envFile); err != nil {
		t.Fatalf("ApplyEnv() failed: %v", err)
	}

	if cfg.Auth.AnonKey != "dotenv-key" {
		t.Errorf("Auth.AnonKey = %q, want dotenv-key", cfg.Auth.AnonKey)
	}
}

func TestApplyEnvMissingFileIgnored(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("ApplyEnv() with missing env file = %v, want nil", err)
	}
}

func TestApplyEnvInvalidConcurrency(t *testing.T) {
	t.Setenv("OSLIRA_QUEUE_CONCURRENCY", "lots")

	cfg := config.Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Errorf("ApplyEnv() with invalid concurrency succeeded, want error")
	}
}

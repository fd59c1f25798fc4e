// Package config holds initialization parameters for all runtime subsystems.
// Configuration layers, lowest precedence first: built-in defaults, a YAML
// file, then OSLIRA_* environment variables (optionally loaded from .env
// files via godotenv).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds initialization parameters for all runtime subsystems.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Auth  AuthConfig  `yaml:"auth"`
	Prefs PrefsConfig `yaml:"prefs"`
	Queue QueueConfig `yaml:"queue"`
	Log   LogConfig   `yaml:"log"`
}

// APIConfig configures the backend API client.
type APIConfig struct {
	BaseURL  string   `yaml:"base_url"`
	Timeout  Duration `yaml:"timeout"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// AuthConfig configures the hosted auth provider.
type AuthConfig struct {
	URL                string   `yaml:"url"`
	AnonKey            string   `yaml:"anon_key"`
	Email              string   `yaml:"email,omitempty"`
	Password           string   `yaml:"-"` // environment only, never a file
	MaxRefreshAttempts int      `yaml:"max_refresh_attempts"`
	RefreshBackoff     Duration `yaml:"refresh_backoff"`
}

// PrefsConfig configures preference persistence. Empty Path disables it.
type PrefsConfig struct {
	Path   string   `yaml:"path"`
	Prefix string   `yaml:"prefix"`
	Bind   []string `yaml:"bind"`
}

// QueueConfig configures the analysis queue.
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a Config with sensible defaults for all subsystems.
func Default() Config {
	return Config{
		API: APIConfig{
			Timeout:  Seconds(30),
			CacheTTL: Seconds(60),
		},
		Auth: AuthConfig{
			MaxRefreshAttempts: 3,
			RefreshBackoff:     Seconds(1),
		},
		Prefs: PrefsConfig{
			Prefix: "oslira",
			Bind:   []string{"ui.theme", "ui.sidebar", "filters"},
		},
		Queue: QueueConfig{
			Concurrency: 2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem section.
func (c *Config) Merge(source *Config) {
	c.API.merge(&source.API)
	c.Auth.merge(&source.Auth)
	c.Prefs.merge(&source.Prefs)
	c.Queue.merge(&source.Queue)
	c.Log.merge(&source.Log)
}

func (c *APIConfig) merge(source *APIConfig) {
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.CacheTTL > 0 {
		c.CacheTTL = source.CacheTTL
	}
}

func (c *AuthConfig) merge(source *AuthConfig) {
	if source.URL != "" {
		c.URL = source.URL
	}
	if source.AnonKey != "" {
		c.AnonKey = source.AnonKey
	}
	if source.Email != "" {
		c.Email = source.Email
	}
	if source.Password != "" {
		c.Password = source.Password
	}
	if source.MaxRefreshAttempts > 0 {
		c.MaxRefreshAttempts = source.MaxRefreshAttempts
	}
	if source.RefreshBackoff > 0 {
		c.RefreshBackoff = source.RefreshBackoff
	}
}

func (c *PrefsConfig) merge(source *PrefsConfig) {
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.Prefix != "" {
		c.Prefix = source.Prefix
	}
	if len(source.Bind) > 0 {
		c.Bind = source.Bind
	}
}

func (c *QueueConfig) merge(source *QueueConfig) {
	if source.Concurrency > 0 {
		c.Concurrency = source.Concurrency
	}
}

func (c *LogConfig) merge(source *LogConfig) {
	if source.Level != "" {
		c.Level = source.Level
	}
}

// Load reads a YAML config file and merges it over defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// ApplyEnv loads the given .env files (missing files are ignored) and then
// applies OSLIRA_* environment variables over c.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	if v := os.Getenv("OSLIRA_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("OSLIRA_AUTH_URL"); v != "" {
		c.Auth.URL = v
	}
	if v := os.Getenv("OSLIRA_AUTH_ANON_KEY"); v != "" {
		c.Auth.AnonKey = v
	}
	if v := os.Getenv("OSLIRA_AUTH_EMAIL"); v != "" {
		c.Auth.Email = v
	}
	if v := os.Getenv("OSLIRA_AUTH_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv("OSLIRA_PREFS_PATH"); v != "" {
		c.Prefs.Path = v
	}
	if v := os.Getenv("OSLIRA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OSLIRA_QUEUE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OSLIRA_QUEUE_CONCURRENCY: %w", err)
		}
		c.Queue.Concurrency = n
	}

	return nil
}

// Package config loads the lexatlas runtime configuration from an optional
// YAML file with environment-variable overrides.
//
// Sensitive values (the LLM API key) are taken from the environment only and
// never written back to disk, so config files stay safe to commit.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Session SessionConfig `yaml:"session"`
	Cluster ClusterConfig `yaml:"cluster"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig configures the OpenAI-compatible language-model provider.
type LLMConfig struct {
	// BaseURL overrides the API endpoint. Useful for local models (Ollama)
	// or any other OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url"`
	// Model is the chat model to use.
	Model string `yaml:"model"`
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout"`
	// APIKey is never read from YAML; it comes from LEXATLAS_API_KEY.
	APIKey string `yaml:"-"`
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	// MaxSessions caps the number of live sessions; the least recently used
	// session is evicted when the cap is exceeded.
	MaxSessions int `yaml:"max_sessions"`
	// MaxHistory caps the per-session conversation buffer (sliding window).
	MaxHistory int `yaml:"max_history"`
}

// ClusterConfig carries the default density-clustering parameters.
type ClusterConfig struct {
	MinClusterSize int    `yaml:"min_cluster_size"`
	MinSamples     int    `yaml:"min_samples"`
	Metric         string `yaml:"metric"`
}

// AuditConfig configures the SQLite audit trail.
type AuditConfig struct {
	// Path is the SQLite database file. Empty disables auditing.
	Path string `yaml:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Default returns a Config with the documented defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Session: SessionConfig{
			MaxSessions: 256,
			MaxHistory:  40,
		},
		Cluster: ClusterConfig{
			MinClusterSize: 5,
			MinSamples:     3,
			Metric:         "jaccard",
		},
		Audit: AuditConfig{Path: "lexatlas.db"},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path (when it exists), applies environment
// overrides, validates, and returns the effective configuration. A missing
// file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("config read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays LEXATLAS_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv("LEXATLAS_API_KEY")
	cfg.LLM.BaseURL = envStringOr("LEXATLAS_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = envStringOr("LEXATLAS_MODEL", cfg.LLM.Model)
	cfg.LLM.Timeout = envDurationOr("LEXATLAS_TIMEOUT", cfg.LLM.Timeout)
	cfg.Session.MaxSessions = envIntOr("LEXATLAS_MAX_SESSIONS", cfg.Session.MaxSessions)
	cfg.Session.MaxHistory = envIntOr("LEXATLAS_MAX_HISTORY", cfg.Session.MaxHistory)
	cfg.Audit.Path = envStringOr("LEXATLAS_AUDIT_DB", cfg.Audit.Path)
	cfg.Log.Level = envStringOr("LEXATLAS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStringOr("LEXATLAS_LOG_FORMAT", cfg.Log.Format)
}

// Validate checks a Config for structural correctness. It returns the first
// validation error encountered, or nil if the config is valid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config must not be nil")
	}
	if strings.TrimSpace(cfg.LLM.BaseURL) == "" {
		return fmt.Errorf("llm.base_url must not be empty")
	}
	if cfg.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", cfg.LLM.Timeout)
	}
	if cfg.Session.MaxSessions <= 0 {
		return fmt.Errorf("session.max_sessions must be positive, got %d", cfg.Session.MaxSessions)
	}
	if cfg.Session.MaxHistory < 10 {
		return fmt.Errorf("session.max_history must be at least 10, got %d", cfg.Session.MaxHistory)
	}
	if cfg.Cluster.MinClusterSize < 2 {
		return fmt.Errorf("cluster.min_cluster_size must be at least 2, got %d", cfg.Cluster.MinClusterSize)
	}
	if cfg.Cluster.MinSamples < 1 {
		return fmt.Errorf("cluster.min_samples must be at least 1, got %d", cfg.Cluster.MinSamples)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error, got %q", cfg.Log.Level)
	}
	return nil
}

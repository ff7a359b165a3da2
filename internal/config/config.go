// Package config provides configuration loading for the search service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds database paths.
type StorageConfig struct {
	CacheDatabasePath     string `yaml:"cache_database_path"`
	TelemetryDatabasePath string `yaml:"telemetry_database_path"`
}

// CacheConfig holds cache TTL and sweep settings.
type CacheConfig struct {
	TTLHours int `yaml:"ttl_hours"`
	// SweepSchedule is a cron expression or descriptor ("@hourly",
	// "@every 30m") controlling the expired-row purge.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// ProvidersConfig holds upstream credentials. Every field falls back to an
// environment variable when unset; a missing credential degrades the
// corresponding adapter to empty results rather than preventing startup.
type ProvidersConfig struct {
	PerplexityAPIKey     string `yaml:"perplexity_api_key"`
	ExaAPIKey            string `yaml:"exa_api_key"`
	ResearchServiceURL   string `yaml:"research_service_url"`
	ResearchServiceToken string `yaml:"research_service_token"`
}

// TelemetryConfig controls usage-event recording.
type TelemetryConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault returns whether telemetry is on; defaults to true.
func (t *TelemetryConfig) EnabledOrDefault() bool {
	if t.Enabled != nil {
		return *t.Enabled
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, resolves
// credentials from the environment, and expands storage paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	resolveEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CacheDatabasePath = expandPath(cfg.Storage.CacheDatabasePath, configDir)
	cfg.Storage.TelemetryDatabasePath = expandPath(cfg.Storage.TelemetryDatabasePath, configDir)

	return &cfg, nil
}

// resolveEnv fills credentials from the environment when the config file
// leaves them empty.
func resolveEnv(cfg *Config) {
	if cfg.Providers.PerplexityAPIKey == "" {
		cfg.Providers.PerplexityAPIKey = os.Getenv("PERPLEXITY_API_KEY")
	}
	if cfg.Providers.ExaAPIKey == "" {
		cfg.Providers.ExaAPIKey = os.Getenv("EXA_API_KEY")
	}
	if cfg.Providers.ResearchServiceURL == "" {
		cfg.Providers.ResearchServiceURL = os.Getenv("RESEARCH_SERVICE_URL")
	}
	if cfg.Providers.ResearchServiceToken == "" {
		cfg.Providers.ResearchServiceToken = os.Getenv("RESEARCH_SERVICE_TOKEN")
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

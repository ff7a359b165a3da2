package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  cache_database_path: "./data/cache.db"
providers:
  perplexity_api_key: "pk-from-file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if !filepath.IsAbs(cfg.Storage.CacheDatabasePath) {
		t.Errorf("cache path should be expanded: %s", cfg.Storage.CacheDatabasePath)
	}
	if cfg.Providers.PerplexityAPIKey != "pk-from-file" {
		t.Errorf("perplexity key = %q", cfg.Providers.PerplexityAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("default ttl = %d", cfg.Cache.TTLHours)
	}
	if cfg.Cache.SweepSchedule != "@hourly" {
		t.Errorf("default sweep schedule = %q", cfg.Cache.SweepSchedule)
	}
	if !cfg.Telemetry.EnabledOrDefault() {
		t.Error("telemetry should default to enabled")
	}
}

func TestLoad_EnvFallback(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "pk-from-env")
	t.Setenv("EXA_API_KEY", "exa-from-env")
	t.Setenv("RESEARCH_SERVICE_URL", "https://research.internal")

	path := writeConfig(t, t.TempDir(), `
providers:
  exa_api_key: "exa-from-file"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers.PerplexityAPIKey != "pk-from-env" {
		t.Errorf("env fallback not applied: %q", cfg.Providers.PerplexityAPIKey)
	}
	// File value wins over environment.
	if cfg.Providers.ExaAPIKey != "exa-from-file" {
		t.Errorf("file value overridden: %q", cfg.Providers.ExaAPIKey)
	}
	if cfg.Providers.ResearchServiceURL != "https://research.internal" {
		t.Errorf("research url = %q", cfg.Providers.ResearchServiceURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "providers:\n  perplexity_api_key: \"old\"\n")

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("providers:\n  perplexity_api_key: \"new\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Providers.PerplexityAPIKey != "new" {
			t.Errorf("reloaded key = %q", cfg.Providers.PerplexityAPIKey)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not picked up")
	}
}

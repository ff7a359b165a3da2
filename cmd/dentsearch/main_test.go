package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/config"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %s", resolved)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestBuildAdapters(t *testing.T) {
	adapters := buildAdapters(config.ProvidersConfig{}, zap.NewNop())
	if len(adapters) != 3 {
		t.Fatalf("expected 3 adapters, got %d", len(adapters))
	}
	seen := make(map[models.Provider]bool)
	for _, a := range adapters {
		seen[a.Name()] = true
	}
	for _, p := range []models.Provider{models.ProviderPerplexity, models.ProviderExa, models.ProviderDeepResearch} {
		if !seen[p] {
			t.Errorf("missing adapter for %s", p)
		}
	}
}

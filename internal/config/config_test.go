package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero target", func(c *Config) { c.Discovery.TargetCount = 0 }},
		{"zero concurrency", func(c *Config) { c.Harvest.Concurrency = 0 }},
		{"inverted pacing", func(c *Config) { c.Harvest.PacingMin = 3 * time.Second; c.Harvest.PacingMax = time.Second }},
		{"bad fetcher", func(c *Config) { c.Harvest.Fetcher = "ftp" }},
		{"zero id offset", func(c *Config) { c.Transform.IDOffset = 0 }},
		{"bad storage", func(c *Config) { c.Storage.Type = "xml" }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongo" }},
		{"relative base", func(c *Config) { c.Site.BaseURL = "/games" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gameharvest.yaml")
	body := `
discovery:
  target_count: 7
harvest:
  concurrency: 3
  item_timeout: 5s
transform:
  id_offset: 40
artifact:
  path: /tmp/gamesData.ts
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discovery.TargetCount != 7 {
		t.Errorf("expected target_count 7, got %d", cfg.Discovery.TargetCount)
	}
	if cfg.Harvest.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.Harvest.Concurrency)
	}
	if cfg.Harvest.ItemTimeout != 5*time.Second {
		t.Errorf("expected item_timeout 5s, got %s", cfg.Harvest.ItemTimeout)
	}
	if cfg.Transform.IDOffset != 40 {
		t.Errorf("expected id_offset 40, got %d", cfg.Transform.IDOffset)
	}
	// Untouched keys keep defaults.
	if cfg.Site.ItemPath != "/game/" {
		t.Errorf("expected default item path, got %q", cfg.Site.ItemPath)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

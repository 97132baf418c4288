package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
engine:
  top_k: 25
  workers: 4
  sweep_timeout: 5m

archive:
  enabled: true
  type: localfs
  path: "/tmp/strata/runs"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.TopK != 25 {
		t.Errorf("expected top_k 25, got %d", cfg.Engine.TopK)
	}
	if cfg.Engine.SweepTimeout != 5*time.Minute {
		t.Errorf("expected sweep_timeout 5m, got %s", cfg.Engine.SweepTimeout)
	}
	if cfg.Archive.Type != "localfs" {
		t.Errorf("expected localfs, got %s", cfg.Archive.Type)
	}

	// Unset keys keep the defaults.
	if cfg.Engine.MaxCombinations != 100000 {
		t.Errorf("expected default max_combinations, got %d", cfg.Engine.MaxCombinations)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	content := []byte(`
llm:
  provider: claude
  claude:
    api_key: "${STRATA_TEST_API_KEY}"
`)

	t.Setenv("STRATA_TEST_API_KEY", "sk-test-123")

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.LLM.Claude.APIKey != "sk-test-123" {
		t.Errorf("expected expanded api key, got %q", cfg.LLM.Claude.APIKey)
	}
}

func TestLoadDefault(t *testing.T) {
	tmpDir := t.TempDir()
	content := []byte("engine:\n  top_k: 7\n")
	if err := os.WriteFile(filepath.Join(tmpDir, "strata.yaml"), content, 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(tmpDir)

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Engine.TopK != 7 {
		t.Errorf("expected top_k 7 from strata.yaml, got %d", cfg.Engine.TopK)
	}
}

func TestLoadDefault_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.Engine.TopK != 50 {
		t.Errorf("expected default top_k 50, got %d", cfg.Engine.TopK)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Engine.TopK != 50 {
		t.Errorf("expected default top_k 50, got %d", cfg.Engine.TopK)
	}
	if cfg.Engine.MaxCombinations != 100000 {
		t.Errorf("expected default max_combinations 100000, got %d", cfg.Engine.MaxCombinations)
	}
	if cfg.Archive.Type != "localfs" {
		t.Errorf("expected default archive type localfs, got %s", cfg.Archive.Type)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return *Defaults()
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero top_k", func(c *Config) { c.Engine.TopK = 0 }, true},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }, true},
		{"zero max combinations", func(c *Config) { c.Engine.MaxCombinations = 0 }, true},
		{"bad archive type", func(c *Config) { c.Archive.Type = "ftp" }, true},
		{"s3 without bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}, true},
		{"s3 with bucket", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
			c.Archive.S3.Bucket = "strata-runs"
		}, false},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, true},
		{"claude with key", func(c *Config) {
			c.LLM.Provider = "claude"
			c.LLM.Claude.APIKey = "sk-x"
		}, false},
		{"advisor without provider", func(c *Config) { c.Advisor.Enabled = true }, true},
		{"metrics without listen", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Listen = ""
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.LLM.Provider != "openai" {
		t.Errorf("Default provider should be openai, got %q", cfg.LLM.Provider)
	}

	if cfg.LLM.Retry.MaxAttempts != 3 {
		t.Errorf("Default MaxAttempts should be 3, got %d", cfg.LLM.Retry.MaxAttempts)
	}

	if cfg.Retrieval.K != 2 {
		t.Errorf("Default retrieval k should be 2, got %d", cfg.Retrieval.K)
	}

	if cfg.Retrieval.MaxTokens != 3000 {
		t.Errorf("Default max tokens should be 3000, got %d", cfg.Retrieval.MaxTokens)
	}

	if cfg.News.MaxArticles != 10 {
		t.Errorf("Default news articles should be 10, got %d", cfg.News.MaxArticles)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := NewConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.0-flash-lite"
	cfg.Server.RequestTimeout = 45 * time.Second
	cfg.Storage.DataDir = tmpDir

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if loaded.LLM.Provider != "gemini" {
		t.Errorf("provider mismatch: got %q", loaded.LLM.Provider)
	}
	if loaded.LLM.Model != "gemini-2.0-flash-lite" {
		t.Errorf("model mismatch: got %q", loaded.LLM.Model)
	}
	if loaded.Server.RequestTimeout != 45*time.Second {
		t.Errorf("request timeout mismatch: got %v", loaded.Server.RequestTimeout)
	}
	if loaded.Storage.DataDir != tmpDir {
		t.Errorf("data dir mismatch: got %q", loaded.Storage.DataDir)
	}
}

func TestPaths(t *testing.T) {
	cfg := NewConfig()
	cfg.Storage.DataDir = "/var/lib/cofounder"

	if got := cfg.DBPath(); got != "/var/lib/cofounder/history.db" {
		t.Errorf("DBPath = %q", got)
	}
}

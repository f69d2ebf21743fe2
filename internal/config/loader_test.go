package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnhancedErrors(t *testing.T) {
	t.Run("file not found", func(t *testing.T) {
		testPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for nonexistent file")
		}
		if !strings.Contains(err.Error(), "config file not found") {
			t.Errorf("error should mention file not found, got: %v", err)
		}
		if !strings.Contains(err.Error(), "cofounder init") {
			t.Errorf("error should mention init command, got: %v", err)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		testPath := filepath.Join(t.TempDir(), "config.yaml")

		if err := os.WriteFile(testPath, []byte("llm:\n  model: x\n"), 0000); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for permission denied")
		}
		if !strings.Contains(err.Error(), "permission denied") {
			t.Errorf("error should mention permission denied, got: %v", err)
		}
		if !strings.Contains(err.Error(), "chmod 644") {
			t.Errorf("error should suggest chmod fix, got: %v", err)
		}
	})

	t.Run("invalid YAML", func(t *testing.T) {
		testPath := filepath.Join(t.TempDir(), "config.yaml")

		if err := os.WriteFile(testPath, []byte("llm: [unclosed"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := LoadFrom(testPath)
		if err == nil {
			t.Fatal("LoadFrom should error for invalid YAML")
		}
		if !strings.Contains(err.Error(), "YAML parse error") {
			t.Errorf("error should mention YAML parse error, got: %v", err)
		}
		if !strings.Contains(err.Error(), ".bak") {
			t.Errorf("error should mention backup file, got: %v", err)
		}
	})
}

func TestLoadFromKeepsDefaults(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  model: llama3.1\n  provider: ollama\n"
	if err := os.WriteFile(testPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFrom(testPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.LLM.Model != "llama3.1" || cfg.LLM.Provider != "ollama" {
		t.Errorf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.Retrieval.MaxTokens != 3000 {
		t.Errorf("default max tokens lost, got %d", cfg.Retrieval.MaxTokens)
	}
	if cfg.LLM.Retry.MaxAttempts != 3 {
		t.Errorf("default retry attempts lost, got %d", cfg.LLM.Retry.MaxAttempts)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault should not fail on a missing file: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("COFOUNDER_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("COFOUNDER_DATA_DIR", "/tmp/cofounder-data")
	t.Setenv("COFOUNDER_REQUEST_TIMEOUT", "30s")
	t.Setenv("COFOUNDER_RETRIEVAL_K", "5")
	t.Setenv("COFOUNDER_EMBEDDING_ENABLED", "false")

	cfg := NewConfig()
	ApplyEnv(cfg)

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "g-key" {
		t.Errorf("gemini provider should read GEMINI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Embedding.APIKey != "o-key" {
		t.Errorf("embedding key should come from OPENAI_API_KEY, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Storage.DataDir != "/tmp/cofounder-data" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %v", cfg.Server.RequestTimeout)
	}
	if cfg.Retrieval.K != 5 {
		t.Errorf("retrieval k = %d", cfg.Retrieval.K)
	}
	if cfg.Embedding.Enabled {
		t.Error("embeddings should be disabled by env")
	}
}

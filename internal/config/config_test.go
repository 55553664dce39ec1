package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagemill/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Workflow.RecognitionConcurrency != 2 {
		t.Fatalf("expected recognition concurrency 2, got %d", cfg.Workflow.RecognitionConcurrency)
	}
	if cfg.Workflow.GenerationConcurrency != 1 {
		t.Fatalf("expected generation concurrency 1, got %d", cfg.Workflow.GenerationConcurrency)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported missing")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.OCR.Engine != "tesseract" {
		t.Fatalf("expected default engine, got %q", cfg.OCR.Engine)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
export_dir = "` + filepath.Join(dir, "export") + `"

[ocr]
engine = "STUB"
languages = ["eng", "deu"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.OCR.Engine != "stub" {
		t.Fatalf("expected engine normalized to stub, got %q", cfg.OCR.Engine)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected absolute data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "pagemill.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := config.Default()
	cfg.OCR.Engine = "carrier-pigeon"
	cfg.Workflow.GenerationConcurrency = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "ocr.engine") {
		t.Fatalf("expected engine complaint, got %v", err)
	}
	if !strings.Contains(err.Error(), "generation_concurrency") {
		t.Fatalf("expected concurrency complaint, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

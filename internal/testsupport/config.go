package testsupport

import (
	"path/filepath"
	"testing"

	"pagemill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The stub OCR engine is selected so tests never require libtesseract.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "export")
	cfg.OCR.Engine = "stub"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithGenerationConcurrency overrides the generation lane size.
func WithGenerationConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.GenerationConcurrency = n
	}
}

// WithRecognitionConcurrency overrides the recognition lane size.
func WithRecognitionConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.RecognitionConcurrency = n
	}
}

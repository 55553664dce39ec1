package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownOCREngines = map[string]struct{}{
	"tesseract": {},
	"stub":      {},
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if _, ok := knownOCREngines[c.OCR.Engine]; !ok {
		problems = append(problems, fmt.Sprintf("ocr.engine: unknown engine %q", c.OCR.Engine))
	}
	if len(c.OCR.Languages) == 0 {
		problems = append(problems, "ocr.languages must list at least one language")
	}
	if c.Workflow.RecognitionConcurrency < 1 {
		problems = append(problems, "workflow.recognition_concurrency must be at least 1")
	}
	if c.Workflow.GenerationConcurrency < 1 {
		problems = append(problems, "workflow.generation_concurrency must be at least 1")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

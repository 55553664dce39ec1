package config

const (
	defaultDataDir                = "~/.local/share/pagemill/data"
	defaultLogDir                 = "~/.local/share/pagemill/logs"
	defaultExportDir              = "~/pagemill-export"
	defaultOCREngine              = "tesseract"
	defaultPDFPageSize            = "A4"
	defaultRecognitionConcurrency = 2
	defaultGenerationConcurrency  = 1
	defaultPriority               = 0
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		OCR: OCR{
			Engine:    defaultOCREngine,
			Languages: []string{"eng"},
		},
		Render: Render{
			PDFPageSize: defaultPDFPageSize,
		},
		Workflow: Workflow{
			RecognitionConcurrency: defaultRecognitionConcurrency,
			GenerationConcurrency:  defaultGenerationConcurrency,
			DefaultPriority:        defaultPriority,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"pagemill/internal/config"
	"pagemill/internal/logging"
	"pagemill/internal/ocr"
	"pagemill/internal/ocr/tesseract"
	"pagemill/internal/pipeline"
	"pagemill/internal/render"
	"pagemill/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// NewEngine selects the recognition backend from configuration.
func NewEngine(cfg *config.Config) (ocr.Engine, error) {
	switch cfg.OCR.Engine {
	case "", "tesseract":
		var opts []tesseract.Option
		if cfg.OCR.TessdataDir != "" {
			opts = append(opts, tesseract.WithTessdataDir(cfg.OCR.TessdataDir))
		}
		return tesseract.New(cfg.OCR.Languages, opts...), nil
	case "stub":
		return &ocr.Stub{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr engine %q", cfg.OCR.Engine)
	}
}

// Run starts the pagemill daemon runtime loop and blocks until the context
// is cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "pagemill.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		st.Close()
		return err
	}
	defer engine.Close()

	manager := pipeline.NewManager(cfg, st, engine, render.NewFileGenerator(cfg), logger)

	d, err := New(cfg, st, logger, manager)
	if err != nil {
		st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("pagemill daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

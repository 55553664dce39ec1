// Package ingest turns source files into persisted pages. Standalone images
// become single upload-origin pages; PDFs are split page by page, each split
// page persisted with a back-reference to the stored source file.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"pagemill/internal/config"
	"pagemill/internal/logging"
	"pagemill/internal/services"
	"pagemill/internal/store"
)

const splitPersistLimit = 4

// Result reports what an import produced. File is nil for standalone images.
type Result struct {
	File  *store.File
	Pages []*store.Page
}

// Importer persists source files as pages ready for processing.
type Importer struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// NewImporter constructs an importer backed by the given store.
func NewImporter(cfg *config.Config, st *store.Store, logger *slog.Logger) *Importer {
	return &Importer{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// Import reads the file at path and persists it as one or more pages.
func (i *Importer) Import(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read source", path, err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "read source", "file is empty", nil)
	}

	name := filepath.Base(path)
	mimeType := DetectMime(name, data)
	switch {
	case IsPDF(mimeType):
		return i.importPDF(ctx, name, data)
	case IsImage(mimeType):
		return i.importImage(ctx, name, mimeType, data)
	default:
		return nil, services.Wrap(services.ErrValidation, "ingest", "detect type", fmt.Sprintf("unsupported content type %s", mimeType), nil)
	}
}

func (i *Importer) importImage(ctx context.Context, name, mimeType string, data []byte) (*Result, error) {
	width, height, err := ProbeDimensions(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "probe image", name, err)
	}

	order, err := i.store.NextOrderValue(ctx)
	if err != nil {
		return nil, err
	}
	page, err := i.store.SavePage(ctx, &store.Page{
		Origin:   store.OriginUpload,
		FileName: name,
		FileSize: int64(len(data)),
		MimeType: mimeType,
		Width:    width,
		Height:   height,
		Order:    order,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info("imported image",
		logging.String(logging.FieldPageID, page.ID),
		logging.String("file_name", name),
		logging.Int("width", width),
		logging.Int("height", height),
	)
	return &Result{Pages: []*store.Page{page}}, nil
}

func (i *Importer) importPDF(ctx context.Context, name string, data []byte) (*Result, error) {
	file, err := i.store.SaveFile(ctx, &store.File{
		Name:     name,
		Size:     int64(len(data)),
		MimeType: "application/pdf",
		Data:     data,
	})
	if err != nil {
		return nil, err
	}

	pageData, err := splitPDF(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ingest", "split pdf", name, err)
	}

	baseOrder, err := i.store.NextOrderValue(ctx)
	if err != nil {
		return nil, err
	}

	pages := make([]*store.Page, len(pageData))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(splitPersistLimit)
	for idx, pdata := range pageData {
		idx, pdata := idx, pdata // per-iteration copies: go directive is below 1.22
		eg.Go(func() error {
			page, err := i.store.SavePage(egCtx, &store.Page{
				Origin:     store.OriginPDFGenerated,
				FileID:     file.ID,
				PageNumber: idx + 1,
				FileName:   fmt.Sprintf("%s (page %d)", name, idx+1),
				FileSize:   int64(len(pdata)),
				MimeType:   "application/pdf",
				Order:      baseOrder + int64(idx),
				Data:       pdata,
			})
			if err != nil {
				return fmt.Errorf("page %d: %w", idx+1, err)
			}
			pages[idx] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	i.logger.Info("imported pdf",
		logging.String(logging.FieldFileID, file.ID),
		logging.String("file_name", name),
		logging.Int("page_count", len(pages)),
	)
	return &Result{File: file, Pages: pages}, nil
}

// splitPDF optimizes the document and splits it into single-page PDFs,
// returned in page order.
func splitPDF(data []byte) ([][]byte, error) {
	tempDir, err := os.MkdirTemp("", "pagemill-split-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage source pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, conf); err != nil {
		return nil, fmt.Errorf("optimize pdf: %w", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if err := api.SplitFile(optimizedPath, tempDir, 1, conf); err != nil {
		return nil, fmt.Errorf("split pdf: %w", err)
	}

	base := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	result := make([][]byte, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pageBytes, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", base, pageNum))
		if err != nil {
			return nil, fmt.Errorf("read split page %d: %w", pageNum, err)
		}
		result = append(result, pageBytes)
	}
	return result, nil
}

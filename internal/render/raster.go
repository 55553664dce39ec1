package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pagemill/internal/store"
)

// PageImage returns the raster image to feed into recognition. Upload pages
// already are images; pages split out of a PDF carry a one-page PDF whose
// embedded scan is extracted via pdfcpu.
func PageImage(page *store.Page) ([]byte, string, error) {
	if page.Origin == store.OriginUpload {
		return page.Data, page.MimeType, nil
	}
	return extractEmbeddedImage(page.Data)
}

func extractEmbeddedImage(pdf []byte) ([]byte, string, error) {
	tempDir, err := os.MkdirTemp("", "pagemill-raster-*")
	if err != nil {
		return nil, "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "page.pdf")
	if err := os.WriteFile(sourcePath, pdf, 0o600); err != nil {
		return nil, "", fmt.Errorf("stage page pdf: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractImagesFile(sourcePath, tempDir, []string{"1"}, conf); err != nil {
		return nil, "", fmt.Errorf("extract page images: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, "", fmt.Errorf("list extracted images: %w", err)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == "page.pdf" {
			continue
		}
		candidates = append(candidates, entry.Name())
	}
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("page contains no embedded raster image")
	}
	sort.Strings(candidates)

	name := candidates[0]
	data, err := os.ReadFile(filepath.Join(tempDir, name))
	if err != nil {
		return nil, "", fmt.Errorf("read extracted image: %w", err)
	}
	return data, mimeForExtension(filepath.Ext(name)), nil
}

func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

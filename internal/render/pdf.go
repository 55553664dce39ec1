package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pagemill/internal/store"
)

// PDF produces a single-page PDF for the page. Pages split out of a source
// PDF already carry their page bytes; upload-origin images are wrapped onto
// a PDF page via pdfcpu.
func (g *FileGenerator) PDF(ctx context.Context, page *store.Page) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	dir, err := g.pageDir(page.ID)
	if err != nil {
		return Artifact{}, err
	}
	outPath := filepath.Join(dir, "page.pdf")

	if page.Origin == store.OriginPDFGenerated {
		return writeArtifact(KindPDF, outPath, page.Data)
	}

	imgPath := filepath.Join(dir, "source"+imageExtension(page.MimeType))
	if err := os.WriteFile(imgPath, page.Data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("stage source image: %w", err)
	}
	defer os.Remove(imgPath)

	var imp *pdfcpu.Import
	if g.pageSize != "" {
		imp, err = api.Import("form:"+g.pageSize+", pos:c", types.POINTS)
		if err != nil {
			return Artifact{}, fmt.Errorf("parse page size %q: %w", g.pageSize, err)
		}
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ImportImagesFile([]string{imgPath}, outPath, imp, conf); err != nil {
		return Artifact{}, fmt.Errorf("import image into pdf: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat pdf artifact: %w", err)
	}
	return Artifact{Kind: KindPDF, Path: outPath, Size: info.Size()}, nil
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/tiff":
		return ".tiff"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

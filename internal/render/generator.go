package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"pagemill/internal/config"
)

// FileGenerator writes artifacts beneath a per-page directory under the data
// directory, so artifacts survive restarts alongside the database.
type FileGenerator struct {
	root     string
	pageSize string
	markdown goldmark.Markdown
}

// NewFileGenerator constructs the standard on-disk artifact generator.
func NewFileGenerator(cfg *config.Config) *FileGenerator {
	return &FileGenerator{
		root:     filepath.Join(cfg.Paths.DataDir, "artifacts"),
		pageSize: cfg.Render.PDFPageSize,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
		),
	}
}

func (g *FileGenerator) pageDir(pageID string) (string, error) {
	dir := filepath.Join(g.root, pageID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	return dir, nil
}

func writeArtifact(kind, path string, data []byte) (Artifact, error) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write %s artifact: %w", kind, err)
	}
	return Artifact{Kind: kind, Path: path, Size: int64(len(data))}, nil
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"pagemill/internal/store"
)

// Markdown writes the recognized text as a markdown document plus an HTML
// preview rendered with goldmark.
func (g *FileGenerator) Markdown(ctx context.Context, page *store.Page) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := g.pageDir(page.ID)
	if err != nil {
		return nil, err
	}

	source := markdownDocument(page)
	mdArtifact, err := writeArtifact(KindMarkdown, filepath.Join(dir, "page.md"), source)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var html bytes.Buffer
	if err := g.markdown.Convert(source, &html); err != nil {
		return nil, fmt.Errorf("render html preview: %w", err)
	}
	htmlArtifact, err := writeArtifact(KindHTML, filepath.Join(dir, "page.html"), html.Bytes())
	if err != nil {
		return nil, err
	}

	return []Artifact{mdArtifact, htmlArtifact}, nil
}

func markdownDocument(page *store.Page) []byte {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %s\n", page.FileName)
	if page.Origin == store.OriginPDFGenerated {
		fmt.Fprintf(&b, "page: %d\n", page.PageNumber)
	}
	if page.OCRConfidence > 0 {
		fmt.Fprintf(&b, "confidence: %.2f\n", page.OCRConfidence)
	}
	fmt.Fprintf(&b, "generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString(page.OCRText)
	if !strings.HasSuffix(page.OCRText, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// Package render generates the per-page artifacts produced by the
// generation lane: markdown with an HTML preview, a single-page PDF, and a
// minimal DOCX document.
package render

import (
	"context"

	"pagemill/internal/store"
)

// Artifact kinds recorded on the page's output list.
const (
	KindMarkdown = "markdown"
	KindHTML     = "html"
	KindPDF      = "pdf"
	KindDOCX     = "docx"
)

// Artifact describes one generated file on disk.
type Artifact struct {
	Kind string
	Path string
	Size int64
}

// Generator produces the artifacts for a recognized page. Implementations
// must be safe for concurrent use across distinct pages.
type Generator interface {
	Markdown(ctx context.Context, page *store.Page) ([]Artifact, error)
	PDF(ctx context.Context, page *store.Page) (Artifact, error)
	DOCX(ctx context.Context, page *store.Page) (Artifact, error)
}

package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"pagemill/internal/store"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DOCX packages the recognized text as a minimal WordprocessingML document:
// one run per source line, wrapped in a single-section body.
func (g *FileGenerator) DOCX(ctx context.Context, page *store.Page) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	dir, err := g.pageDir(page.ID)
	if err != nil {
		return Artifact{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", documentXML(page.OCRText)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return Artifact{}, fmt.Errorf("create docx part %s: %w", part.name, err)
		}
		if _, err := w.Write([]byte(part.body)); err != nil {
			return Artifact{}, fmt.Errorf("write docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("finalize docx package: %w", err)
	}

	return writeArtifact(KindDOCX, filepath.Join(dir, "page.docx"), buf.Bytes())
}

func documentXML(text string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(`<w:p>`)
		if line != "" {
			b.WriteString(`<w:r><w:t xml:space="preserve">`)
			b.WriteString(escapeXML(line))
			b.WriteString(`</w:t></w:r>`)
		}
		b.WriteString(`</w:p>`)
	}
	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

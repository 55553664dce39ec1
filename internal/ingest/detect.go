package ingest

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	// Register decoders so DecodeConfig understands the formats scanners
	// commonly produce.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DetectMime determines the content type from the payload, falling back to
// the file extension when sniffing is inconclusive.
func DetectMime(name string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if sniffed != "application/octet-stream" && sniffed != "text/plain; charset=utf-8" {
		return sniffed
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return sniffed
	}
}

// IsPDF reports whether the mime type denotes a PDF document.
func IsPDF(mimeType string) bool {
	return mimeType == "application/pdf"
}

// IsImage reports whether the mime type denotes a raster image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// ProbeDimensions reads the pixel dimensions from an encoded image without
// decoding the full frame.
func ProbeDimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

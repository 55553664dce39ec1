// Package ocr defines the text-recognition provider contract used by the
// processing pipeline. Concrete engines live in subpackages so importing the
// contract never drags in cgo bindings.
package ocr

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Input encapsulates a single page image submitted for recognition.
type Input struct {
	// Image is the encoded image payload.
	Image []byte
	// MimeType declares the image content type (e.g. image/png).
	MimeType string
	// Languages is a list of trained-data hints (e.g. "eng", "deu").
	Languages []string
	// DPI carries the effective dots-per-inch; zero means unknown.
	DPI int
}

// Result captures recognition output for a single input image.
type Result struct {
	// Text is the linearized, NFC-normalized extracted text.
	Text string
	// Confidence is the mean recognition confidence in [0, 1].
	Confidence float64
}

// Engine is the recognition provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
	Close() error
}

// Normalize canonicalizes recognized text: Unicode NFC, Unix line endings,
// and no leading or trailing whitespace. Engines apply this before returning
// so downstream artifact generation sees one canonical form.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// Package tesseract provides the gosseract-backed OCR engine.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"pagemill/internal/ocr"
)

// Engine implements ocr.Engine using the gosseract client. A fresh client is
// created per recognition so engines are safe for concurrent use.
type Engine struct {
	languages   []string
	tessdataDir string

	clientFactory func() *gosseract.Client
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithTessdataDir points the engine at a non-default trained-data directory.
func WithTessdataDir(dir string) Option {
	return func(e *Engine) {
		e.tessdataDir = dir
	}
}

// New constructs a Tesseract-backed engine for the given language hints.
func New(languages []string, opts ...Option) *Engine {
	engine := &Engine{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs OCR on a single page image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	client := e.clientFactory()
	defer client.Close()

	if e.tessdataDir != "" {
		if err := client.SetTessdataPrefix(e.tessdataDir); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := client.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	return ocr.Result{
		Text:       ocr.Normalize(text),
		Confidence: meanConfidence(client),
	}, nil
}

func (e *Engine) Close() error { return nil }

func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}

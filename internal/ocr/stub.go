package ocr

import (
	"context"
	"time"
)

// Stub is a deterministic engine used by tests and by installs without a
// Tesseract runtime. It returns configured text after an optional delay and
// honors cancellation while waiting.
type Stub struct {
	Text       string
	Confidence float64
	Delay      time.Duration
	Err        error
}

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Recognize(ctx context.Context, _ Input) (Result, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s.Err != nil {
		return Result{}, s.Err
	}
	return Result{Text: Normalize(s.Text), Confidence: s.Confidence}, nil
}

func (s *Stub) Close() error { return nil }

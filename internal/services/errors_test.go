package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pagemill/internal/services"
)

func TestWrapTagsSentinel(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrStorage, "store", "save page", "write failed", base)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "ocr", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsCancellation(t *testing.T) {
	if !services.IsCancellation(context.Canceled) {
		t.Fatal("context.Canceled should classify as cancellation")
	}
	if !services.IsCancellation(fmt.Errorf("stage: %w", context.Canceled)) {
		t.Fatal("wrapped cancellation should classify as cancellation")
	}
	if services.IsCancellation(errors.New("boom")) {
		t.Fatal("plain errors must not classify as cancellation")
	}
}

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(parseLevel(level))
	return slog.New(newConsoleHandler(buf, lvl))
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf, "info"), "store")

	logger.Info("page saved", String(FieldPageID, "abc"))

	line := buf.String()
	if !strings.Contains(line, " store: page saved") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "page_id=abc") {
		t.Fatalf("expected page_id attr, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not appear as a key=value pair: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "info")

	logger.Info("event", String("msg", "two words"))

	if !strings.Contains(buf.String(), `msg="two words"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "warn")

	logger.Info("suppressed")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line should be suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn line should be emitted: %q", out)
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger must report disabled")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pagemill/internal/ingest"
	"pagemill/internal/services"
	"pagemill/internal/store"
	"pagemill/internal/testsupport"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDetectMime(t *testing.T) {
	pngData := encodePNG(t, 2, 2)
	if got := ingest.DetectMime("scan.png", pngData); got != "image/png" {
		t.Fatalf("sniffed %q, want image/png", got)
	}
	// Sniffing cannot identify arbitrary bytes; the extension decides.
	if got := ingest.DetectMime("doc.pdf", []byte{0x00, 0x01}); got != "application/pdf" {
		t.Fatalf("fallback gave %q, want application/pdf", got)
	}
	if got := ingest.DetectMime("page.tiff", []byte{0x00}); got != "image/tiff" {
		t.Fatalf("fallback gave %q, want image/tiff", got)
	}
}

func TestProbeDimensions(t *testing.T) {
	data := encodePNG(t, 17, 9)
	width, height, err := ingest.ProbeDimensions(data)
	if err != nil {
		t.Fatalf("ProbeDimensions: %v", err)
	}
	if width != 17 || height != 9 {
		t.Fatalf("got %dx%d, want 17x9", width, height)
	}
	if _, _, err := ingest.ProbeDimensions([]byte("not an image")); err == nil {
		t.Fatal("expected error for junk input")
	}
}

func TestImportImageCreatesUploadPage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	importer := ingest.NewImporter(cfg, st, nil)

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, encodePNG(t, 12, 7), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	result, err := importer.Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.File != nil {
		t.Fatal("standalone images must not create a file record")
	}
	if len(result.Pages) != 1 {
		t.Fatalf("expected a single page, got %d", len(result.Pages))
	}

	page := result.Pages[0]
	if page.Origin != store.OriginUpload {
		t.Fatalf("origin %q, want upload", page.Origin)
	}
	if page.Status != store.StatusPendingRender {
		t.Fatalf("status %q, want pending_render", page.Status)
	}
	if page.Width != 12 || page.Height != 7 {
		t.Fatalf("dimensions %dx%d, want 12x7", page.Width, page.Height)
	}
	if len(page.Data) == 0 {
		t.Fatal("page must retain source bytes")
	}

	persisted, err := st.GetPage(context.Background(), page.ID)
	if err != nil || persisted == nil {
		t.Fatalf("page not persisted: %v", err)
	}
}

func TestImportAssignsSequentialOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	importer := ingest.NewImporter(cfg, st, nil)

	dir := t.TempDir()
	var orders []int64
	for _, name := range []string{"a.png", "b.png"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, encodePNG(t, 4, 4), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		result, err := importer.Import(context.Background(), path)
		if err != nil {
			t.Fatalf("Import %s: %v", name, err)
		}
		orders = append(orders, result.Pages[0].Order)
	}
	if orders[0] != 0 || orders[1] != 1 {
		t.Fatalf("orders %v, want [0 1]", orders)
	}
}

func TestImportRejectsUnsupportedContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	importer := ingest.NewImporter(cfg, st, nil)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := importer.Import(context.Background(), path)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImportRejectsEmptyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	importer := ingest.NewImporter(cfg, st, nil)

	path := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := importer.Import(context.Background(), path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

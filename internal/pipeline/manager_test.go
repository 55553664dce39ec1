package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"pagemill/internal/config"
	"pagemill/internal/ocr"
	"pagemill/internal/pipeline"
	"pagemill/internal/render"
	"pagemill/internal/services"
	"pagemill/internal/store"
	"pagemill/internal/testsupport"
)

func newManager(t *testing.T, engine ocr.Engine) (*pipeline.Manager, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithRecognitionConcurrency(2),
		testsupport.WithGenerationConcurrency(1),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	mgr := pipeline.NewManager(cfg, st, engine, render.NewFileGenerator(cfg), nil)
	t.Cleanup(mgr.Stop)
	return mgr, st, cfg
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func savedUploadPage(t *testing.T, st *store.Store, name string) *store.Page {
	t.Helper()
	page, err := st.SavePage(context.Background(), &store.Page{
		Origin:   store.OriginUpload,
		FileName: name,
		MimeType: "image/png",
		Data:     pngBytes(t),
	})
	if err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	return page
}

func pollPageStatus(t *testing.T, st *store.Store, pageID string, want store.Status) {
	t.Helper()
	waitFor(t, "status "+string(want), func() bool {
		page, err := st.GetPage(context.Background(), pageID)
		if err != nil || page == nil {
			return false
		}
		return page.Status == want
	})
}

func TestManagerProcessesPageEndToEnd(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "hello scanned world", Confidence: 0.87})
	page := savedUploadPage(t, st, "scan.png")
	ctx := context.Background()

	if err := mgr.ProcessPage(ctx, page.ID, 0); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	mgr.Wait()

	final, err := st.GetPage(ctx, page.ID)
	if err != nil || final == nil {
		t.Fatalf("GetPage: %v", err)
	}
	if final.Status != store.StatusCompleted {
		t.Fatalf("status %q, want completed (logs: %+v)", final.Status, final.Logs)
	}
	if final.Progress != 100 {
		t.Fatalf("progress %v, want 100", final.Progress)
	}
	if final.OCRText != "hello scanned world" {
		t.Fatalf("ocr text %q", final.OCRText)
	}
	if final.ProcessedAt == nil {
		t.Fatal("completion must stamp ProcessedAt")
	}

	kinds := make(map[string]bool)
	for _, output := range final.Outputs {
		kinds[output.Kind] = true
		if _, err := os.Stat(output.Path); err != nil {
			t.Fatalf("artifact %s missing on disk: %v", output.Kind, err)
		}
	}
	for _, kind := range []string{render.KindMarkdown, render.KindHTML, render.KindPDF, render.KindDOCX} {
		if !kinds[kind] {
			t.Fatalf("missing artifact kind %s (got %v)", kind, kinds)
		}
	}

	count, err := st.QueueCount(ctx)
	if err != nil {
		t.Fatalf("QueueCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("queue entry not retired, count %d", count)
	}
}

func TestManagerFailureMarksPageError(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Err: errors.New("trained data missing")})
	page := savedUploadPage(t, st, "scan.png")
	ctx := context.Background()

	if err := mgr.ProcessPage(ctx, page.ID, 0); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	mgr.Wait()

	final, err := st.GetPage(ctx, page.ID)
	if err != nil || final == nil {
		t.Fatalf("GetPage: %v", err)
	}
	if final.Status != store.StatusError {
		t.Fatalf("status %q, want error", final.Status)
	}
	var logged bool
	for _, entry := range final.Logs {
		if entry.Level == "error" {
			logged = true
		}
	}
	if !logged {
		t.Fatal("failure must append an error log entry")
	}

	// The durable entry survives; startup resume decides what to do with it.
	entry, err := st.QueueEntryForPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("QueueEntryForPage: %v", err)
	}
	if entry == nil {
		t.Fatal("queue entry should remain after a failure")
	}
}

func TestManagerCancelKeepsDurableStatus(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "slow", Delay: time.Minute})
	page := savedUploadPage(t, st, "scan.png")
	ctx := context.Background()

	if err := mgr.ProcessPage(ctx, page.ID, 0); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	pollPageStatus(t, st, page.ID, store.StatusRecognizing)

	cancelled, err := mgr.CancelPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("CancelPage: %v", err)
	}
	if !cancelled {
		t.Fatal("expected a live task to cancel")
	}
	mgr.Wait()

	final, err := st.GetPage(ctx, page.ID)
	if err != nil || final == nil {
		t.Fatalf("GetPage: %v", err)
	}
	if final.Status != store.StatusRecognizing {
		t.Fatalf("cancellation must keep the last durable status, got %q", final.Status)
	}
	entry, err := st.QueueEntryForPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("QueueEntryForPage: %v", err)
	}
	if entry != nil {
		t.Fatal("cancel must retire the durable queue entry")
	}
}

func TestManagerResumeQueueRoutesByStatus(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "resumed text", Confidence: 0.5})
	ctx := context.Background()

	fresh := savedUploadPage(t, st, "fresh.png")
	recognized := savedUploadPage(t, st, "recognized.png")
	finished := savedUploadPage(t, st, "finished.png")
	failed := savedUploadPage(t, st, "failed.png")

	// Walk the recognized page to ocr_success with a result in place.
	for _, status := range []store.Status{store.StatusRendering, store.StatusReady, store.StatusRecognizing} {
		recognized.Status = status
		if err := st.UpdatePage(ctx, recognized); err != nil {
			t.Fatalf("UpdatePage: %v", err)
		}
	}
	recognized.OCRText = "already recognized"
	recognized.Status = store.StatusOCRSuccess
	if err := st.UpdatePage(ctx, recognized); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}

	for _, status := range []store.Status{
		store.StatusRendering, store.StatusReady, store.StatusRecognizing,
		store.StatusOCRSuccess, store.StatusPendingGen, store.StatusGeneratingMarkdown,
		store.StatusMarkdownSuccess, store.StatusGeneratingPDF, store.StatusPDFSuccess,
		store.StatusGeneratingDOCX, store.StatusCompleted,
	} {
		finished.Status = status
		if err := st.UpdatePage(ctx, finished); err != nil {
			t.Fatalf("UpdatePage: %v", err)
		}
	}

	failed.Status = store.StatusRecognizing
	if err := st.UpdatePage(ctx, failed); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	failed.SetFailed("engine exploded")
	if err := st.UpdatePage(ctx, failed); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}

	for _, id := range []string{fresh.ID, recognized.ID, finished.ID, failed.ID} {
		if _, err := st.AddToQueue(ctx, id, 0); err != nil {
			t.Fatalf("AddToQueue: %v", err)
		}
	}

	resumed, err := mgr.ResumeQueue(ctx)
	if err != nil {
		t.Fatalf("ResumeQueue: %v", err)
	}
	if resumed != 2 {
		t.Fatalf("resumed %d pages, want 2", resumed)
	}
	mgr.Wait()

	for _, id := range []string{fresh.ID, recognized.ID} {
		page, err := st.GetPage(ctx, id)
		if err != nil || page == nil {
			t.Fatalf("GetPage: %v", err)
		}
		if page.Status != store.StatusCompleted {
			t.Fatalf("page %s ended in %q, want completed", id, page.Status)
		}
	}

	// Terminal pages had their stale entries retired.
	count, err := st.QueueCount(ctx)
	if err != nil {
		t.Fatalf("QueueCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("queue count %d after resume, want 0", count)
	}
}

func TestManagerRetryRequiresFailedPage(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "ok"})
	page := savedUploadPage(t, st, "scan.png")

	err := mgr.RetryPage(context.Background(), page.ID, 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManagerRegenerateRequiresRecognitionResult(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "ok"})
	page := savedUploadPage(t, st, "scan.png")

	err := mgr.RegeneratePage(context.Background(), page.ID, 0)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManagerExportPage(t *testing.T) {
	mgr, st, cfg := newManager(t, &ocr.Stub{Text: "exported text", Confidence: 0.9})
	page := savedUploadPage(t, st, "scan.png")
	ctx := context.Background()

	if _, err := mgr.ExportPage(ctx, page.ID, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("export of an unprocessed page must fail validation, got %v", err)
	}

	if err := mgr.ProcessPage(ctx, page.ID, 0); err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	mgr.Wait()

	exported, err := mgr.ExportPage(ctx, page.ID, "")
	if err != nil {
		t.Fatalf("ExportPage: %v", err)
	}
	if len(exported) != 4 {
		t.Fatalf("exported %d artifacts, want 4", len(exported))
	}
	for _, path := range exported {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("exported artifact missing: %v", err)
		}
		if !strings.HasPrefix(path, cfg.Paths.ExportDir) {
			t.Fatalf("artifact %s exported outside %s", path, cfg.Paths.ExportDir)
		}
	}
}

func TestManagerPauseClearDropsPendingWork(t *testing.T) {
	mgr, st, _ := newManager(t, &ocr.Stub{Text: "slow", Delay: time.Minute})
	ctx := context.Background()
	mgr.Pause()

	first := savedUploadPage(t, st, "first.png")
	second := savedUploadPage(t, st, "second.png")
	for _, id := range []string{first.ID, second.ID} {
		if err := mgr.ProcessPage(ctx, id, 0); err != nil {
			t.Fatalf("ProcessPage: %v", err)
		}
	}

	stats := mgr.Stats()
	if !stats.Recognition.Paused || stats.Recognition.Pending != 2 {
		t.Fatalf("unexpected recognition stats: %+v", stats.Recognition)
	}

	if err := mgr.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	mgr.Resume()
	mgr.Wait()

	count, err := st.QueueCount(ctx)
	if err != nil {
		t.Fatalf("QueueCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("queue count %d after clear, want 0", count)
	}
	page, err := st.GetPage(ctx, first.ID)
	if err != nil || page == nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Status != store.StatusPendingRender {
		t.Fatalf("cleared page mutated to %q", page.Status)
	}
}

func TestManagerProcessUnknownPage(t *testing.T) {
	mgr, _, _ := newManager(t, &ocr.Stub{Text: "ok"})
	err := mgr.ProcessPage(context.Background(), "no-such-page", 0)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

package pipeline

import (
	"context"

	"pagemill/internal/ingest"
	"pagemill/internal/logging"
	"pagemill/internal/ocr"
	"pagemill/internal/render"
	"pagemill/internal/services"
	"pagemill/internal/store"
)

func (m *Manager) submitRecognition(pageID string) {
	m.recognition.Submit(pageID, func(ctx context.Context) error {
		return m.runRecognition(ctx, pageID)
	})
}

// runRecognition drives a page through the recognition lane: render the
// source into a raster, then extract text. Every status transition is
// persisted before the next stage starts, so a crash resumes from the last
// durable status.
func (m *Manager) runRecognition(ctx context.Context, pageID string) error {
	logger := m.logger.With(
		logging.String(logging.FieldPageID, pageID),
		logging.String(logging.FieldLane, "recognition"),
	)

	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return services.Wrap(services.ErrNotFound, "recognition", "load page", pageID, nil)
	}

	// Re-entry discards any partial recognition result.
	page.ResetForRecognition()
	page.AppendLog("info", "recognition started")
	if err := m.transition(ctx, page, store.StatusRendering, 5); err != nil {
		return m.stageResult(ctx, page, err)
	}

	raster, rasterMime, err := render.PageImage(page)
	if err != nil {
		return m.stageResult(ctx, page, services.Wrap(services.ErrExternalTool, "recognition", "render page", "", err))
	}
	if page.Width == 0 || page.Height == 0 {
		if width, height, err := ingest.ProbeDimensions(raster); err == nil {
			page.Width = width
			page.Height = height
		}
	}
	if err := m.transition(ctx, page, store.StatusReady, 20); err != nil {
		return m.stageResult(ctx, page, err)
	}

	if err := m.transition(ctx, page, store.StatusRecognizing, 30); err != nil {
		return m.stageResult(ctx, page, err)
	}
	result, err := m.engine.Recognize(ctx, ocr.Input{
		Image:     raster,
		MimeType:  rasterMime,
		Languages: m.cfg.OCR.Languages,
	})
	if err != nil {
		return m.stageResult(ctx, page, err)
	}

	page.OCRText = result.Text
	page.OCRConfidence = result.Confidence
	page.AppendLog("info", "recognition finished")
	if err := m.transition(ctx, page, store.StatusOCRSuccess, 60); err != nil {
		return m.stageResult(ctx, page, err)
	}
	logger.Info("recognition finished",
		logging.String(logging.FieldStatus, string(store.StatusOCRSuccess)),
		logging.Float64("confidence", result.Confidence),
		logging.String(logging.FieldEventType, "recognition_finished"),
	)

	m.submitGeneration(pageID)
	return nil
}

package pipeline

import (
	"context"
	"time"

	"pagemill/internal/logging"
	"pagemill/internal/services"
	"pagemill/internal/store"
)

func (m *Manager) submitGeneration(pageID string) {
	m.generation.Submit(pageID, func(ctx context.Context) error {
		return m.runGeneration(ctx, pageID)
	})
}

// runGeneration produces the page's artifacts in fixed order: markdown with
// HTML preview, then PDF, then DOCX. Completion stamps ProcessedAt and
// retires the durable queue entry.
func (m *Manager) runGeneration(ctx context.Context, pageID string) error {
	logger := m.logger.With(
		logging.String(logging.FieldPageID, pageID),
		logging.String(logging.FieldLane, "generation"),
	)

	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return services.Wrap(services.ErrNotFound, "generation", "load page", pageID, nil)
	}

	// Re-entry discards previously generated artifacts.
	page.ResetForGeneration()
	page.AppendLog("info", "generation started")
	if err := m.transition(ctx, page, store.StatusPendingGen, 65); err != nil {
		return m.stageResult(ctx, page, err)
	}

	if err := m.transition(ctx, page, store.StatusGeneratingMarkdown, 70); err != nil {
		return m.stageResult(ctx, page, err)
	}
	artifacts, err := m.generator.Markdown(ctx, page)
	if err != nil {
		return m.stageResult(ctx, page, err)
	}
	for _, artifact := range artifacts {
		page.AddOutput(artifact.Kind, artifact.Path, artifact.Size)
	}
	if err := m.transition(ctx, page, store.StatusMarkdownSuccess, 80); err != nil {
		return m.stageResult(ctx, page, err)
	}

	if err := m.transition(ctx, page, store.StatusGeneratingPDF, 85); err != nil {
		return m.stageResult(ctx, page, err)
	}
	pdfArtifact, err := m.generator.PDF(ctx, page)
	if err != nil {
		return m.stageResult(ctx, page, err)
	}
	page.AddOutput(pdfArtifact.Kind, pdfArtifact.Path, pdfArtifact.Size)
	if err := m.transition(ctx, page, store.StatusPDFSuccess, 90); err != nil {
		return m.stageResult(ctx, page, err)
	}

	if err := m.transition(ctx, page, store.StatusGeneratingDOCX, 95); err != nil {
		return m.stageResult(ctx, page, err)
	}
	docxArtifact, err := m.generator.DOCX(ctx, page)
	if err != nil {
		return m.stageResult(ctx, page, err)
	}
	page.AddOutput(docxArtifact.Kind, docxArtifact.Path, docxArtifact.Size)

	now := time.Now().UTC()
	page.ProcessedAt = &now
	page.AppendLog("info", "generation finished")
	if err := m.transition(ctx, page, store.StatusCompleted, 100); err != nil {
		return m.stageResult(ctx, page, err)
	}

	if _, err := m.store.RemoveFromQueue(context.WithoutCancel(ctx), pageID); err != nil {
		logger.Warn("failed to retire queue entry",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_retire_failed"),
		)
	}

	logger.Info("page completed",
		logging.String(logging.FieldStatus, string(store.StatusCompleted)),
		logging.Int("artifacts", len(page.Outputs)),
		logging.String(logging.FieldEventType, "page_completed"),
	)
	return nil
}

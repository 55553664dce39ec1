package pipeline

import (
	"context"
	"log/slog"

	"pagemill/internal/config"
	"pagemill/internal/logging"
	"pagemill/internal/ocr"
	"pagemill/internal/render"
	"pagemill/internal/services"
	"pagemill/internal/store"
)

// Manager owns the two processing lanes and drives pages through the status
// machine, persisting every transition before the next stage runs.
type Manager struct {
	cfg       *config.Config
	store     *store.Store
	engine    ocr.Engine
	generator render.Generator
	logger    *slog.Logger

	recognition *Lane
	generation  *Lane
}

// Stats snapshots both lanes.
type Stats struct {
	Recognition LaneStats
	Generation  LaneStats
}

// NewManager constructs a pipeline manager. Lane sizes come from the
// workflow configuration.
func NewManager(cfg *config.Config, st *store.Store, engine ocr.Engine, generator render.Generator, logger *slog.Logger) *Manager {
	logger = logging.NewComponentLogger(logger, "pipeline")
	return &Manager{
		cfg:         cfg,
		store:       st,
		engine:      engine,
		generator:   generator,
		logger:      logger,
		recognition: NewLane("recognition", cfg.Workflow.RecognitionConcurrency, logger),
		generation:  NewLane("generation", cfg.Workflow.GenerationConcurrency, logger),
	}
}

// ProcessPage queues a page for full processing: a durable queue entry plus
// a recognition lane task. Re-processing an active page cancels the running
// task and starts over.
func (m *Manager) ProcessPage(ctx context.Context, pageID string, priority int) error {
	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "process page", pageID, nil)
	}

	if _, err := m.store.AddToQueue(ctx, pageID, priority); err != nil {
		return err
	}
	m.submitRecognition(pageID)

	m.logger.Info("page queued",
		logging.String(logging.FieldPageID, pageID),
		logging.Int("priority", priority),
		logging.String(logging.FieldEventType, "page_queued"),
	)
	return nil
}

// RetryPage re-queues a failed page. Pages in any other status are rejected;
// active pages are resubmitted through ProcessPage instead.
func (m *Manager) RetryPage(ctx context.Context, pageID string, priority int) error {
	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "retry page", pageID, nil)
	}
	if page.Status != store.StatusError {
		return services.Wrap(services.ErrValidation, "pipeline", "retry page",
			"only failed pages can be retried (status "+string(page.Status)+")", nil)
	}
	return m.ProcessPage(ctx, pageID, priority)
}

// RegeneratePage re-runs artifact generation for a page that already has a
// recognition result, without repeating OCR.
func (m *Manager) RegeneratePage(ctx context.Context, pageID string, priority int) error {
	page, err := m.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page == nil {
		return services.Wrap(services.ErrNotFound, "pipeline", "regenerate page", pageID, nil)
	}
	if page.OCRText == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "regenerate page",
			"page has no recognition result yet", nil)
	}

	if _, err := m.store.AddToQueue(ctx, pageID, priority); err != nil {
		return err
	}
	m.submitGeneration(pageID)
	return nil
}

// CancelPage cancels live tasks for the page in both lanes and removes its
// durable queue entry. The page keeps its last persisted status.
func (m *Manager) CancelPage(ctx context.Context, pageID string) (bool, error) {
	cancelled := m.recognition.Cancel(pageID)
	if m.generation.Cancel(pageID) {
		cancelled = true
	}
	removed, err := m.store.RemoveFromQueue(ctx, pageID)
	if err != nil {
		return cancelled, err
	}
	return cancelled || removed, nil
}

// Clear cancels all live tasks, drops pending work, and empties the durable
// queue.
func (m *Manager) Clear(ctx context.Context) error {
	m.recognition.Clear()
	m.generation.Clear()
	_, err := m.store.ClearQueue(ctx)
	return err
}

// Pause suspends admission on both lanes. Running tasks finish normally.
func (m *Manager) Pause() {
	m.recognition.Pause()
	m.generation.Pause()
}

// Resume restarts admission on both lanes.
func (m *Manager) Resume() {
	m.recognition.Resume()
	m.generation.Resume()
}

// Stats reports lane occupancy.
func (m *Manager) Stats() Stats {
	return Stats{
		Recognition: m.recognition.Stats(),
		Generation:  m.generation.Stats(),
	}
}

// Stop cancels live tasks and waits for them to unwind. Durable queue
// entries survive so the next start can resume the work.
func (m *Manager) Stop() {
	m.recognition.Clear()
	m.generation.Clear()
	m.recognition.Wait()
	m.generation.Wait()
}

// Wait blocks until both lanes drain. Test support.
func (m *Manager) Wait() {
	m.recognition.Wait()
	m.generation.Wait()
}

// transition persists a status change together with any field updates the
// caller staged on the page. Stages never advance past an unpersisted
// transition.
func (m *Manager) transition(ctx context.Context, page *store.Page, status store.Status, progress float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page.Status = status
	page.Progress = progress
	return m.store.UpdatePage(ctx, page)
}

// fail marks the page failed and persists it outside the task context so the
// terminal status survives cancellation races.
func (m *Manager) fail(ctx context.Context, page *store.Page, cause error) error {
	page.SetFailed(cause.Error())
	if err := m.store.UpdatePage(context.WithoutCancel(ctx), page); err != nil {
		m.logger.Error("failed to persist error status",
			logging.String(logging.FieldPageID, page.ID),
			logging.Error(err),
		)
	}
	return cause
}

// stageResult routes a stage error: cancellations propagate untouched so the
// page keeps its durable status, anything else marks the page failed.
func (m *Manager) stageResult(ctx context.Context, page *store.Page, err error) error {
	if err == nil {
		return nil
	}
	if services.IsCancellation(err) {
		return err
	}
	return m.fail(ctx, page, err)
}

package pipeline

import (
	"context"

	"pagemill/internal/logging"
	"pagemill/internal/store"
)

// ResumeQueue replays durable queue entries after a restart. Entries are
// admitted in dequeue order (priority descending, oldest first) and routed
// by the page's last persisted status: pages that already finished
// recognition go straight to the generation lane, everything else starts
// recognition over. Entries for missing or terminal pages are retired.
func (m *Manager) ResumeQueue(ctx context.Context) (int, error) {
	entries, err := m.store.QueueEntries(ctx)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, entry := range entries {
		page, err := m.store.GetPage(ctx, entry.PageID)
		if err != nil {
			return resumed, err
		}
		if page == nil {
			if _, err := m.store.RemoveFromQueue(ctx, entry.PageID); err != nil {
				return resumed, err
			}
			continue
		}

		switch {
		case page.Status == store.StatusCompleted:
			if _, err := m.store.RemoveFromQueue(ctx, entry.PageID); err != nil {
				return resumed, err
			}
		case page.Status == store.StatusError:
			// Failed pages wait for an explicit retry; keeping the entry
			// would re-run them on every start.
			if _, err := m.store.RemoveFromQueue(ctx, entry.PageID); err != nil {
				return resumed, err
			}
			m.logger.Warn("dropping queue entry for failed page",
				logging.String(logging.FieldPageID, entry.PageID),
				logging.String(logging.FieldEventType, "resume_skipped_failed"),
			)
		case page.Status.InGenerationLane():
			m.submitGeneration(entry.PageID)
			resumed++
		default:
			m.submitRecognition(entry.PageID)
			resumed++
		}
	}

	if resumed > 0 {
		m.logger.Info("resumed queued pages",
			logging.Int("count", resumed),
			logging.String(logging.FieldEventType, "queue_resumed"),
		)
	}
	return resumed, nil
}

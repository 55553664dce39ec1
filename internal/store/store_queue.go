package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const queueColumns = "id, page_id, priority, added_at"

// AddToQueue records that a page is logically queued for processing.
// Idempotent: re-enqueuing an already-queued page returns the existing entry
// unchanged, so at most one entry exists per page id.
func (s *Store) AddToQueue(ctx context.Context, pageID string, priority int) (*QueueEntry, error) {
	if pageID == "" {
		return nil, validationErr("add to queue", "page id is required")
	}
	ctx = ensureContext(ctx)

	existing, err := s.QueueEntryForPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	entry := &QueueEntry{
		ID:       uuid.NewString(),
		PageID:   pageID,
		Priority: priority,
		AddedAt:  time.Now().UTC(),
	}
	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO queue_entries (`+queueColumns+`) VALUES (?, ?, ?, ?)`,
		entry.ID,
		entry.PageID,
		entry.Priority,
		entry.AddedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		// A concurrent enqueue can win the race on the UNIQUE(page_id)
		// constraint; resolve to the surviving entry.
		if racing, lookupErr := s.QueueEntryForPage(ctx, pageID); lookupErr == nil && racing != nil {
			return racing, nil
		}
		return nil, storageErr("add to queue", err)
	}
	return entry, nil
}

// QueueEntryForPage returns the queue entry for a page, or (nil, nil).
func (s *Store) QueueEntryForPage(ctx context.Context, pageID string) (*QueueEntry, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+queueColumns+` FROM queue_entries WHERE page_id = ?`,
		pageID,
	)
	entry, err := scanQueueEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get queue entry", err)
	}
	return entry, nil
}

// RemoveFromQueue deletes the entry for a page. Idempotent.
func (s *Store) RemoveFromQueue(ctx context.Context, pageID string) (bool, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM queue_entries WHERE page_id = ?`, pageID)
	if err != nil {
		return false, storageErr("remove from queue", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("remove from queue", err)
	}
	return affected > 0, nil
}

// QueueEntries returns all entries ordered by descending priority, oldest
// first within equal priority. This is the resume dequeue order.
func (s *Store) QueueEntries(ctx context.Context) ([]*QueueEntry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+queueColumns+` FROM queue_entries ORDER BY priority DESC, added_at`,
	)
	if err != nil {
		return nil, storageErr("list queue entries", err)
	}
	defer rows.Close()

	var entries []*QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			return nil, storageErr("scan queue entry", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// QueueCount returns the number of durable queue entries.
func (s *Store) QueueCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM queue_entries`).Scan(&count)
	if err != nil {
		return 0, storageErr("queue count", err)
	}
	return count, nil
}

// ClearQueue removes every queue entry.
func (s *Store) ClearQueue(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM queue_entries`)
	if err != nil {
		return 0, storageErr("clear queue", err)
	}
	return res.RowsAffected()
}

func scanQueueEntry(scanner interface{ Scan(dest ...any) error }) (*QueueEntry, error) {
	var (
		id       string
		pageID   string
		priority int
		addedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &pageID, &priority, &addedRaw); err != nil {
		return nil, err
	}
	entry := &QueueEntry{
		ID:       id,
		PageID:   pageID,
		Priority: priority,
	}
	if added, err := parseTimeString(addedRaw.String); err == nil {
		entry.AddedAt = added
	}
	return entry, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const pageColumns = "id, file_id, page_number, origin, file_name, file_size, mime_type, width, height, status, progress, ocr_text, ocr_confidence, outputs_json, logs_json, page_order, data, created_at, updated_at, processed_at"

// SavePage persists a page. A page without an id is treated as new: an id is
// assigned, CreatedAt is set, and the default status applies when none was
// given. Saving a page whose id already exists delegates to UpdatePage so the
// transition table stays authoritative.
func (s *Store) SavePage(ctx context.Context, page *Page) (*Page, error) {
	if page == nil {
		return nil, validationErr("save page", "page is nil")
	}
	ctx = ensureContext(ctx)

	if page.ID != "" {
		existing, err := s.GetPage(ctx, page.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := s.UpdatePage(ctx, page); err != nil {
				return nil, err
			}
			return s.GetPage(ctx, page.ID)
		}
	}

	if page.Status == "" {
		page.Status = StatusPendingRender
	}
	if err := page.Validate(); err != nil {
		return nil, validationErr("save page", err.Error())
	}
	if page.ID == "" {
		page.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now

	outputsJSON, logsJSON, err := marshalPageLists(page)
	if err != nil {
		return nil, validationErr("save page", err.Error())
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO pages (`+pageColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID,
		nullableString(page.FileID),
		page.PageNumber,
		string(page.Origin),
		page.FileName,
		page.FileSize,
		nullableString(page.MimeType),
		page.Width,
		page.Height,
		string(page.Status),
		page.Progress,
		nullableString(page.OCRText),
		page.OCRConfidence,
		nullableString(outputsJSON),
		nullableString(logsJSON),
		page.Order,
		page.Data,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		nullableTime(page.ProcessedAt),
	)
	if err != nil {
		return nil, storageErr("insert page", err)
	}
	if _, err := s.execWithRetry(ctx, raiseWatermarkSQL, page.Order+1); err != nil {
		return nil, storageErr("raise order watermark", err)
	}
	return page, nil
}

// raiseWatermarkSQL lifts the order high-water mark, never lowers it.
const raiseWatermarkSQL = `UPDATE order_watermark SET value = MAX(value, ?) WHERE id = 1`

// GetPage fetches a page by id. A missing id returns (nil, nil).
func (s *Store) GetPage(ctx context.Context, id string) (*Page, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get page", err)
	}
	return page, nil
}

// ListPages returns all pages ordered ascending by their user-visible order,
// with creation time as the tie-breaker.
func (s *Store) ListPages(ctx context.Context) ([]*Page, error) {
	return s.queryPages(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY page_order, created_at`)
}

// ListPagesByStatus returns pages matching any of the provided statuses,
// ordered by user-visible order.
func (s *Store) ListPagesByStatus(ctx context.Context, statuses ...Status) ([]*Page, error) {
	if len(statuses) == 0 {
		return s.ListPages(ctx)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	query := `SELECT ` + pageColumns + ` FROM pages WHERE status IN (` + placeholders + `) ORDER BY page_order, created_at`
	return s.queryPages(ctx, query, args...)
}

// UpdatePage persists changes to an existing page. The current durable status
// is read inside the same transaction and the transition table is enforced;
// an illegal transition is a validation error and nothing is written.
func (s *Store) UpdatePage(ctx context.Context, page *Page) error {
	if page == nil {
		return validationErr("update page", "page is nil")
	}
	if page.ID == "" {
		return validationErr("update page", "page id is required")
	}
	if err := page.Validate(); err != nil {
		return validationErr("update page", err.Error())
	}
	ctx = ensureContext(ctx)

	outputsJSON, logsJSON, err := marshalPageLists(page)
	if err != nil {
		return validationErr("update page", err.Error())
	}

	page.UpdatedAt = time.Now().UTC()

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("update page", err)
		}
		defer func() { _ = tx.Rollback() }()

		var currentStatus string
		err = tx.QueryRowContext(ctx, `SELECT status FROM pages WHERE id = ?`, page.ID).Scan(&currentStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return validationErr("update page", fmt.Sprintf("page %s does not exist", page.ID))
		}
		if err != nil {
			return storageErr("update page", err)
		}

		if !ValidTransition(Status(currentStatus), page.Status) {
			return validationErr("update page",
				fmt.Sprintf("illegal status transition %s -> %s for page %s", currentStatus, page.Status, page.ID))
		}

		_, err = tx.ExecContext(
			ctx,
			`UPDATE pages
             SET file_id = ?, page_number = ?, origin = ?, file_name = ?, file_size = ?,
                 mime_type = ?, width = ?, height = ?, status = ?, progress = ?,
                 ocr_text = ?, ocr_confidence = ?, outputs_json = ?, logs_json = ?,
                 page_order = ?, data = ?, updated_at = ?, processed_at = ?
             WHERE id = ?`,
			nullableString(page.FileID),
			page.PageNumber,
			string(page.Origin),
			page.FileName,
			page.FileSize,
			nullableString(page.MimeType),
			page.Width,
			page.Height,
			string(page.Status),
			page.Progress,
			nullableString(page.OCRText),
			page.OCRConfidence,
			nullableString(outputsJSON),
			nullableString(logsJSON),
			page.Order,
			page.Data,
			page.UpdatedAt.Format(time.RFC3339Nano),
			nullableTime(page.ProcessedAt),
			page.ID,
		)
		if err != nil {
			return storageErr("update page", err)
		}

		if _, err := tx.ExecContext(ctx, raiseWatermarkSQL, page.Order+1); err != nil {
			return storageErr("raise order watermark", err)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("update page", err)
		}
		return nil
	})
}

// DeletePage removes a page and any queue entry referencing it in one
// transaction. Returns false when the page did not exist.
func (s *Store) DeletePage(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)
	var deleted bool
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("delete page", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
		if err != nil {
			return storageErr("delete page", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete page", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE page_id = ?`, id); err != nil {
			return storageErr("delete page queue entry", err)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("delete page", err)
		}
		deleted = affected > 0
		return nil
	})
	return deleted, err
}

// DeleteAllPages clears the pages table and the entire queue atomically.
// Since no pages remain afterwards, the queue is always cleared in full
// rather than filtered by page id.
func (s *Store) DeleteAllPages(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("delete all pages", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `DELETE FROM pages`)
		if err != nil {
			return storageErr("delete all pages", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return storageErr("delete all pages", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries`); err != nil {
			return storageErr("delete all queue entries", err)
		}

		// No pages survive, so ordering starts over from zero.
		if _, err := tx.ExecContext(ctx, `UPDATE order_watermark SET value = 0 WHERE id = 1`); err != nil {
			return storageErr("reset order watermark", err)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("delete all pages", err)
		}
		removed = affected
		return nil
	})
	return removed, err
}

// PageOrder pairs a page id with its new order value for bulk reordering.
type PageOrder struct {
	ID    string
	Order int64
}

// BulkUpdateOrder applies all order updates in a single transaction; either
// every order updates or none do.
func (s *Store) BulkUpdateOrder(ctx context.Context, orders []PageOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("bulk update order", err)
		}
		defer func() { _ = tx.Rollback() }()

		var highest int64
		for _, entry := range orders {
			res, err := tx.ExecContext(
				ctx,
				`UPDATE pages SET page_order = ?, updated_at = ? WHERE id = ?`,
				entry.Order, now, entry.ID,
			)
			if err != nil {
				return storageErr("bulk update order", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return storageErr("bulk update order", err)
			}
			if affected == 0 {
				return validationErr("bulk update order", fmt.Sprintf("page %s does not exist", entry.ID))
			}
			if entry.Order > highest {
				highest = entry.Order
			}
		}

		if _, err := tx.ExecContext(ctx, raiseWatermarkSQL, highest+1); err != nil {
			return storageErr("raise order watermark", err)
		}

		if err := tx.Commit(); err != nil {
			return storageErr("bulk update order", err)
		}
		return nil
	})
}

// NextOrderValue returns one past the highest order ever assigned: the
// durable watermark, or max(page_order)+1 over surviving rows if an external
// write pushed past it. Deleting the highest-ordered page does not lower the
// result, so freed positions are never reused; only DeleteAllPages resets
// the sequence to 0.
func (s *Store) NextOrderValue(ctx context.Context) (int64, error) {
	var next int64
	err := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT MAX(
             COALESCE((SELECT MAX(page_order) + 1 FROM pages), 0),
             COALESCE((SELECT value FROM order_watermark WHERE id = 1), 0)
         )`,
	).Scan(&next)
	if err != nil {
		return 0, storageErr("next order value", err)
	}
	return next, nil
}

// CountPages returns the total number of pages.
func (s *Store) CountPages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM pages`).Scan(&count)
	if err != nil {
		return 0, storageErr("count pages", err)
	}
	return count, nil
}

// Stats returns a count of pages grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM pages GROUP BY status`)
	if err != nil {
		return nil, storageErr("page stats", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, storageErr("page stats", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (s *Store) queryPages(ctx context.Context, query string, args ...any) ([]*Page, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, storageErr("list pages", err)
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, storageErr("scan page", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func marshalPageLists(page *Page) (outputsJSON, logsJSON string, err error) {
	if len(page.Outputs) > 0 {
		raw, err := json.Marshal(page.Outputs)
		if err != nil {
			return "", "", fmt.Errorf("marshal outputs: %w", err)
		}
		outputsJSON = string(raw)
	}
	if len(page.Logs) > 0 {
		raw, err := json.Marshal(page.Logs)
		if err != nil {
			return "", "", fmt.Errorf("marshal logs: %w", err)
		}
		logsJSON = string(raw)
	}
	return outputsJSON, logsJSON, nil
}

func scanPage(scanner interface{ Scan(dest ...any) error }) (*Page, error) {
	var (
		id           string
		fileID       sql.NullString
		pageNumber   int
		origin       string
		fileName     string
		fileSize     int64
		mimeType     sql.NullString
		width        int
		height       int
		statusStr    string
		progress     float64
		ocrText      sql.NullString
		ocrConf      sql.NullFloat64
		outputsRaw   sql.NullString
		logsRaw      sql.NullString
		pageOrder    int64
		data         []byte
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		processedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&fileID,
		&pageNumber,
		&origin,
		&fileName,
		&fileSize,
		&mimeType,
		&width,
		&height,
		&statusStr,
		&progress,
		&ocrText,
		&ocrConf,
		&outputsRaw,
		&logsRaw,
		&pageOrder,
		&data,
		&createdRaw,
		&updatedRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	page := &Page{
		ID:            id,
		FileID:        fileID.String,
		PageNumber:    pageNumber,
		Origin:        Origin(origin),
		FileName:      fileName,
		FileSize:      fileSize,
		MimeType:      mimeType.String,
		Width:         width,
		Height:        height,
		Status:        Status(statusStr),
		Progress:      progress,
		OCRText:       ocrText.String,
		OCRConfidence: ocrConf.Float64,
		Order:         pageOrder,
		Data:          data,
	}

	if outputsRaw.Valid && outputsRaw.String != "" {
		if err := json.Unmarshal([]byte(outputsRaw.String), &page.Outputs); err != nil {
			return nil, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}
	if logsRaw.Valid && logsRaw.String != "" {
		if err := json.Unmarshal([]byte(logsRaw.String), &page.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		page.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		page.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			page.ProcessedAt = &processed
		}
	}
	return page, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const fileColumns = "id, name, size, mime_type, data, created_at"

// SaveFile persists a raw uploaded blob. Files have a lifecycle independent
// from the pages derived from them.
func (s *Store) SaveFile(ctx context.Context, file *File) (*File, error) {
	if file == nil {
		return nil, validationErr("save file", "file is nil")
	}
	if file.Name == "" {
		return nil, validationErr("save file", "file name is required")
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = time.Now().UTC()

	_, err := s.execWithRetry(
		ensureContext(ctx),
		`INSERT OR REPLACE INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		file.ID,
		file.Name,
		file.Size,
		nullableString(file.MimeType),
		file.Data,
		file.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, storageErr("insert file", err)
	}
	return file, nil
}

// GetFile fetches a file by id. A missing id returns (nil, nil).
func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get file", err)
	}
	return file, nil
}

// ListFiles returns all files ordered by creation time.
func (s *Store) ListFiles(ctx context.Context) ([]*File, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+fileColumns+` FROM files ORDER BY created_at`)
	if err != nil {
		return nil, storageErr("list files", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, storageErr("scan file", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// DeleteFile removes a file row. Pages referencing it keep their own copy of
// the page bytes, so deleting a file never cascades to pages.
func (s *Store) DeleteFile(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete file", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete file", err)
	}
	return affected > 0, nil
}

func scanFile(scanner interface{ Scan(dest ...any) error }) (*File, error) {
	var (
		id         string
		name       string
		size       int64
		mimeType   sql.NullString
		data       []byte
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &size, &mimeType, &data, &createdRaw); err != nil {
		return nil, err
	}
	file := &File{
		ID:       id,
		Name:     name,
		Size:     size,
		MimeType: mimeType.String,
		Data:     data,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	return file, nil
}

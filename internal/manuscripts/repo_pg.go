package manuscripts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const manuscriptColumns = `id, user_id, file_name, original_filename, mime_type, content_type, size_bytes,
       storage_provider, storage_key, extracted_text_key, extracted_at, paper_type,
       paper_type_confidence, text_length, created_at`

// Create inserts a new manuscript.
func (r *PGRepo) Create(ctx context.Context, ms Manuscript) error {
	const query = `
INSERT INTO manuscripts (
    id,
    user_id,
    file_name,
    original_filename,
    mime_type,
    content_type,
    size_bytes,
    storage_provider,
    storage_key,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	originalName := ms.OriginalFilename
	if originalName == "" {
		originalName = ms.FileName
	}
	contentType := ms.ContentType
	if contentType == "" {
		contentType = ms.MimeType
	}
	storageProvider := ms.StorageProvider
	if storageProvider == "" {
		storageProvider = "local"
	}

	var storageKey sql.NullString
	if ms.StorageKey != "" {
		storageKey = sql.NullString{String: ms.StorageKey, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		ms.ID,
		ms.UserID,
		ms.FileName,
		originalName,
		ms.MimeType,
		contentType,
		ms.SizeBytes,
		storageProvider,
		storageKey,
		ms.CreatedAt,
	)
	return err
}

// GetByID fetches a manuscript by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, manuscriptID string) (Manuscript, error) {
	query := `
SELECT ` + manuscriptColumns + `
FROM manuscripts
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	ms, err := scanManuscript(r.DB.QueryRowContext(ctx, query, userID, manuscriptID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Manuscript{}, ErrNotFound
		}
		return Manuscript{}, err
	}
	return ms, nil
}

// GetCurrentByUser returns the latest manuscript for a user.
func (r *PGRepo) GetCurrentByUser(ctx context.Context, userID string) (Manuscript, error) {
	query := `
SELECT ` + manuscriptColumns + `
FROM manuscripts
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1`
	ms, err := scanManuscript(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Manuscript{}, ErrNotFound
		}
		return Manuscript{}, err
	}
	return ms, nil
}

// ListByUser lists manuscripts ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Manuscript, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
SELECT ` + manuscriptColumns + `
FROM manuscripts
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Manuscript
	for rows.Next() {
		ms, err := scanManuscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// UpdateExtraction stores the extracted text metadata for a manuscript.
func (r *PGRepo) UpdateExtraction(ctx context.Context, userID, manuscriptID, extractedKey string, extractedAt time.Time) error {
	const query = `
UPDATE manuscripts
SET extracted_text_key = $1, extracted_at = $2
WHERE user_id = $3 AND id = $4 AND extracted_text_key IS NULL`
	_, err := r.DB.ExecContext(ctx, query, extractedKey, extractedAt, userID, manuscriptID)
	return err
}

// UpdatePaperType records the detected study type for a manuscript.
func (r *PGRepo) UpdatePaperType(ctx context.Context, userID, manuscriptID, paperType, confidence string, textLength int) error {
	const query = `
UPDATE manuscripts
SET paper_type = $1, paper_type_confidence = $2, text_length = $3
WHERE user_id = $4 AND id = $5 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, paperType, confidence, textLength, userID, manuscriptID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser soft-deletes all manuscripts owned by a user.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) error {
	const query = `
UPDATE manuscripts
SET deleted_at = now()
WHERE user_id = $1 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, userID)
	return err
}

// ClaimGuest reassigns manuscripts owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE manuscripts
SET user_id = $1
WHERE user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanManuscript(row rowScanner) (Manuscript, error) {
	var (
		ms              Manuscript
		originalName    sql.NullString
		contentType     sql.NullString
		storageProvider sql.NullString
		storageKey      sql.NullString
		extractedKey    sql.NullString
		extractedAt     sql.NullTime
		paperType       sql.NullString
		paperTypeConf   sql.NullString
		textLength      sql.NullInt64
	)

	err := row.Scan(
		&ms.ID,
		&ms.UserID,
		&ms.FileName,
		&originalName,
		&ms.MimeType,
		&contentType,
		&ms.SizeBytes,
		&storageProvider,
		&storageKey,
		&extractedKey,
		&extractedAt,
		&paperType,
		&paperTypeConf,
		&textLength,
		&ms.CreatedAt,
	)
	if err != nil {
		return Manuscript{}, err
	}

	if originalName.Valid {
		ms.OriginalFilename = originalName.String
	}
	if contentType.Valid {
		ms.ContentType = contentType.String
	}
	if storageProvider.Valid {
		ms.StorageProvider = storageProvider.String
	}
	if storageKey.Valid {
		ms.StorageKey = storageKey.String
	}
	if extractedKey.Valid {
		ms.ExtractedTextKey = extractedKey.String
	}
	if extractedAt.Valid {
		ms.ExtractedAt = &extractedAt.Time
	}
	if paperType.Valid {
		ms.PaperType = paperType.String
	}
	if paperTypeConf.Valid {
		ms.PaperTypeConfidence = paperTypeConf.String
	}
	if textLength.Valid {
		ms.TextLength = int(textLength.Int64)
	}
	return ms, nil
}

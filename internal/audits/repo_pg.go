package audits

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const auditColumns = `id, manuscript_id, user_id, status, paper_type, help_types, prompt_version,
       provider, model, result, rigor_warnings, error_code, error_message, error_retryable,
       completed_at, created_at`

// Create inserts a new audit.
func (r *PGRepo) Create(ctx context.Context, audit Audit) error {
	const query = `
INSERT INTO audits (
	id, manuscript_id, user_id, status, paper_type, help_types, prompt_version,
	provider, model, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	helpTypes, err := marshalJSONB(audit.HelpTypes)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		audit.ID,
		audit.ManuscriptID,
		audit.UserID,
		audit.Status,
		audit.PaperType,
		helpTypes,
		audit.PromptVersion,
		audit.Provider,
		audit.Model,
		audit.CreatedAt,
	)
	return err
}

// GetByID returns an audit by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Audit, error) {
	query := `
SELECT ` + auditColumns + `
FROM audits
WHERE id = $1
LIMIT 1`
	audit, err := scanAudit(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Audit{}, ErrNotFound
		}
		return Audit{}, err
	}
	return audit, nil
}

// ListByUser lists audits for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Audit, error) {
	query := `
SELECT ` + auditColumns + `
FROM audits
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	return r.list(ctx, query, userID, clampLimit(limit))
}

// ListByManuscript lists the audit history of one manuscript, newest-first.
func (r *PGRepo) ListByManuscript(ctx context.Context, userID, manuscriptID string, limit int) ([]Audit, error) {
	query := `
SELECT ` + auditColumns + `
FROM audits
WHERE user_id = $1 AND manuscript_id = $2
ORDER BY created_at DESC
LIMIT $3`
	return r.list(ctx, query, userID, manuscriptID, clampLimit(limit))
}

// UpdateStatus sets a new status.
func (r *PGRepo) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `
UPDATE audits
SET status = $1,
    updated_at = now()
WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateResult stores the validated result and marks the audit completed.
// Rigor warnings land in their own column; they are diagnostics, not part of
// the result document.
func (r *PGRepo) UpdateResult(ctx context.Context, id string, result map[string]any, warnings []string, completedAt time.Time) error {
	const query = `
UPDATE audits
SET status = 'completed',
    result = $1::jsonb,
    rigor_warnings = $2::jsonb,
    error_code = NULL,
    error_message = NULL,
    error_retryable = NULL,
    completed_at = $3,
    updated_at = now()
WHERE id = $4`

	resultPayload, err := marshalJSONB(result)
	if err != nil {
		return err
	}
	warningsPayload, err := json.Marshal(warnings)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, resultPayload, warningsPayload, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFailure marks the audit failed with a stable error code.
func (r *PGRepo) UpdateFailure(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error {
	const query = `
UPDATE audits
SET status = 'failed',
    error_code = $1,
    error_message = $2,
    error_retryable = $3,
    completed_at = $4,
    updated_at = now()
WHERE id = $5`
	res, err := r.DB.ExecContext(ctx, query, code, message, retryable, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes all audits owned by a user.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM audits WHERE user_id = $1`, userID)
	return err
}

// ClaimGuest reassigns audits owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE audits
SET user_id = $1
WHERE user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Audit, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Audit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, audit)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (Audit, error) {
	var (
		a              Audit
		paperType      sql.NullString
		helpTypes      sql.NullString
		promptVersion  sql.NullString
		provider       sql.NullString
		model          sql.NullString
		result         sql.NullString
		rigorWarnings  sql.NullString
		errorCode      sql.NullString
		errorMessage   sql.NullString
		errorRetryable sql.NullBool
		completedAt    sql.NullTime
	)

	err := row.Scan(
		&a.ID,
		&a.ManuscriptID,
		&a.UserID,
		&a.Status,
		&paperType,
		&helpTypes,
		&promptVersion,
		&provider,
		&model,
		&result,
		&rigorWarnings,
		&errorCode,
		&errorMessage,
		&errorRetryable,
		&completedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return Audit{}, err
	}

	if paperType.Valid {
		a.PaperType = paperType.String
	}
	if helpTypes.Valid {
		_ = json.Unmarshal([]byte(helpTypes.String), &a.HelpTypes)
	}
	if promptVersion.Valid {
		a.PromptVersion = promptVersion.String
	}
	if provider.Valid {
		a.Provider = provider.String
	}
	if model.Valid {
		a.Model = model.String
	}
	if result.Valid {
		a.Result = map[string]any{}
		if err := json.Unmarshal([]byte(result.String), &a.Result); err != nil {
			a.Result = nil
		}
	}
	if rigorWarnings.Valid {
		_ = json.Unmarshal([]byte(rigorWarnings.String), &a.RigorWarnings)
	}
	if errorCode.Valid {
		a.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = errorMessage.String
	}
	if errorRetryable.Valid {
		a.Retryable = &errorRetryable.Bool
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(value)
}

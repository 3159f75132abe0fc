package audits

import (
	"context"
	"time"
)

// Repo persists audits.
type Repo interface {
	Create(ctx context.Context, audit Audit) error
	GetByID(ctx context.Context, id string) (Audit, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Audit, error)
	ListByManuscript(ctx context.Context, userID, manuscriptID string, limit int) ([]Audit, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateResult(ctx context.Context, id string, result map[string]any, warnings []string, completedAt time.Time) error
	UpdateFailure(ctx context.Context, id, code, message string, retryable bool, completedAt time.Time) error
	DeleteByUser(ctx context.Context, userID string) error
}

package manuscripts

import (
	"context"
	"time"
)

// Repo defines persistence operations for manuscripts.
type Repo interface {
	Create(ctx context.Context, ms Manuscript) error
	GetByID(ctx context.Context, userID, manuscriptID string) (Manuscript, error)
	GetCurrentByUser(ctx context.Context, userID string) (Manuscript, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Manuscript, error)
	UpdateExtraction(ctx context.Context, userID, manuscriptID, extractedKey string, extractedAt time.Time) error
	UpdatePaperType(ctx context.Context, userID, manuscriptID, paperType, confidence string, textLength int) error
	DeleteByUser(ctx context.Context, userID string) error
}

// GuestClaimer reassigns guest-owned manuscripts after login.
type GuestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

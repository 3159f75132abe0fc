package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"manuscript-backend/internal/audits"
	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/shared/telemetry"
	"manuscript-backend/internal/users"
)

type Service struct {
	ManuscriptRepo manuscripts.Repo
	AuditRepo      audits.Repo
	Gamification   *gamification.Service
	UserRepo       users.Repo
}

type ClaimResult struct {
	MigratedManuscripts int `json:"migratedManuscripts"`
	MigratedAudits      int `json:"migratedAudits"`
}

func NewService(msRepo manuscripts.Repo, auditRepo audits.Repo, gamificationSvc *gamification.Service, userRepo users.Repo) *Service {
	return &Service{
		ManuscriptRepo: msRepo,
		AuditRepo:      auditRepo,
		Gamification:   gamificationSvc,
		UserRepo:       userRepo,
	}
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	if msPG, ok := s.ManuscriptRepo.(*manuscripts.PGRepo); ok && msPG != nil && msPG.DB != nil {
		if auditPG, ok := s.AuditRepo.(*audits.PGRepo); ok && auditPG != nil && auditPG.DB != nil {
			return claimWithTx(ctx, msPG.DB, guestUserID, authedUserID)
		}
	}

	msCount, err := claimManuscripts(ctx, s.ManuscriptRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	auditCount, err := claimAudits(ctx, s.AuditRepo, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedManuscripts: msCount, MigratedAudits: auditCount}, nil
}

// DeleteAccount removes all data owned by a user.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("userID is required")
	}

	if err := s.AuditRepo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.ManuscriptRepo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if s.Gamification != nil {
		if err := s.Gamification.Reset(ctx, userID); err != nil {
			return err
		}
	}
	if deleter, ok := s.UserRepo.(userDeleter); ok && s.UserRepo != nil {
		if err := deleter.DeleteByID(ctx, userID); err != nil && !errors.Is(err, users.ErrNotFound) {
			return err
		}
	}

	telemetry.Info("account.deleted", map[string]any{"user_id": userID})
	return nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	msRes, err := tx.ExecContext(ctx, `UPDATE manuscripts SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	msCount, _ := msRes.RowsAffected()

	auditRes, err := tx.ExecContext(ctx, `UPDATE audits SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	auditCount, _ := auditRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedManuscripts: int(msCount), MigratedAudits: int(auditCount)}, nil
}

type guestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

type userDeleter interface {
	DeleteByID(ctx context.Context, userID string) error
}

func claimManuscripts(ctx context.Context, repo manuscripts.Repo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("manuscripts repo does not support claim")
}

func claimAudits(ctx context.Context, repo audits.Repo, guestUserID, authedUserID string) (int, error) {
	if claimer, ok := repo.(guestClaimer); ok {
		return claimer.ClaimGuest(ctx, guestUserID, authedUserID)
	}
	return 0, errors.New("audits repo does not support claim")
}

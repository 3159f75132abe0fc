package gamification

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed profile store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Get(ctx context.Context, userID string) (Profile, error) {
	var (
		p          Profile
		lastActive sql.NullString
	)
	row := s.DB.QueryRowContext(ctx, `
SELECT user_id, xp, level, streak, last_active_date, audits_total, updated_at
FROM gamification_profiles WHERE user_id = $1`, userID)
	err := row.Scan(&p.UserID, &p.XP, &p.Level, &p.Streak, &lastActive, &p.AuditsTotal, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultProfile(userID), nil
		}
		return Profile{}, err
	}
	if lastActive.Valid {
		p.LastActiveDate = lastActive.String
	}
	return p, nil
}

func (s *pgStore) Save(ctx context.Context, p Profile) error {
	var lastActive sql.NullString
	if p.LastActiveDate != "" {
		lastActive = sql.NullString{String: p.LastActiveDate, Valid: true}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO gamification_profiles (user_id, xp, level, streak, last_active_date, audits_total, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
  xp = EXCLUDED.xp,
  level = EXCLUDED.level,
  streak = EXCLUDED.streak,
  last_active_date = EXCLUDED.last_active_date,
  audits_total = EXCLUDED.audits_total,
  updated_at = EXCLUDED.updated_at`,
		p.UserID, p.XP, p.Level, p.Streak, lastActive, p.AuditsTotal, p.UpdatedAt)
	return err
}

func (s *pgStore) Delete(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM gamification_profiles WHERE user_id = $1`, userID)
	return err
}

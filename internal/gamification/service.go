package gamification

import (
	"context"
	"time"

	"manuscript-backend/internal/shared/telemetry"
)

// Store persists profiles.
type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	Save(ctx context.Context, p Profile) error
	Delete(ctx context.Context, userID string) error
}

// Service applies audit rewards to user profiles.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service with an in-memory store.
func NewService() *Service {
	return &Service{store: newMemoryStore(), now: time.Now}
}

// NewPostgresService constructs a Service over the given store.
func NewPostgresService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Profile returns the user's profile, or a fresh one for unseen users.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	return s.store.Get(ctx, userID)
}

// RecordAudit accumulates one completed audit into the user's profile and
// returns the updated profile plus what changed. readinessScore is nil when
// the audit produced no usable score.
func (s *Service) RecordAudit(ctx context.Context, userID string, textLength int, helpTypes []string, readinessScore *int) (Profile, Reward, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return Profile{}, Reward{}, err
	}

	now := s.now().UTC()
	earned := ComputeAuditXP(textLength, helpTypes, readinessScore)
	streak := ComputeStreak(p.LastActiveDate, p.Streak, now)

	prevLevel := p.Level
	if prevLevel < 1 {
		prevLevel = 1
	}

	p.UserID = userID
	p.XP += earned
	p.Level = ComputeLevel(p.XP)
	p.Streak = streak.Streak
	p.LastActiveDate = streak.LastActiveDate
	p.AuditsTotal++
	p.UpdatedAt = now

	if err := s.store.Save(ctx, p); err != nil {
		return Profile{}, Reward{}, err
	}

	reward := Reward{
		XPEarned:  earned,
		LeveledUp: p.Level > prevLevel,
		NewLevel:  p.Level,
		Streak:    p.Streak,
	}

	telemetry.Info("gamification.audit_recorded", map[string]any{
		"user_id":    userID,
		"xp_earned":  earned,
		"xp_total":   p.XP,
		"level":      p.Level,
		"leveled_up": reward.LeveledUp,
		"streak":     p.Streak,
	})

	return p, reward, nil
}

// Reset removes the user's profile. Used by account deletion.
func (s *Service) Reset(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

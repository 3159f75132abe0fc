package gamification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordAuditFirstAudit(t *testing.T) {
	svc := NewService()
	svc.now = fixedNow(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))

	profile, reward, err := svc.RecordAudit(context.Background(), "u1", 6000, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 150, reward.XPEarned)
	assert.Equal(t, 150, profile.XP)
	assert.Equal(t, 1, profile.Level)
	assert.Equal(t, 1, profile.Streak)
	assert.Equal(t, "2026-08-28", profile.LastActiveDate)
	assert.Equal(t, 1, profile.AuditsTotal)
	assert.False(t, reward.LeveledUp)
}

func TestRecordAuditLevelUp(t *testing.T) {
	svc := NewService()
	svc.now = fixedNow(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))

	seed := Profile{UserID: "u1", XP: 950, Level: 1, Streak: 2, LastActiveDate: "2026-08-27"}
	require.NoError(t, svc.store.Save(context.Background(), seed))

	profile, reward, err := svc.RecordAudit(context.Background(), "u1", 100, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1050, profile.XP)
	assert.Equal(t, 2, profile.Level)
	assert.True(t, reward.LeveledUp)
	assert.Equal(t, 2, reward.NewLevel)
	assert.Equal(t, 3, profile.Streak, "yesterday's activity extends the streak")
}

func TestRecordAuditSameDayKeepsStreak(t *testing.T) {
	svc := NewService()
	svc.now = fixedNow(time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC))

	seed := Profile{UserID: "u1", XP: 100, Level: 1, Streak: 5, LastActiveDate: "2026-08-28"}
	require.NoError(t, svc.store.Save(context.Background(), seed))

	profile, _, err := svc.RecordAudit(context.Background(), "u1", 100, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, profile.Streak)
}

func TestProfileUnseenUserGetsDefaults(t *testing.T) {
	svc := NewService()

	profile, err := svc.Profile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.XP)
	assert.Equal(t, 1, profile.Level)
	assert.Equal(t, 0, profile.Streak)
}

func TestResetRemovesProfile(t *testing.T) {
	svc := NewService()
	svc.now = fixedNow(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))

	_, _, err := svc.RecordAudit(context.Background(), "u1", 100, nil, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Reset(context.Background(), "u1"))

	profile, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, profile.XP)
	assert.Equal(t, 0, profile.AuditsTotal)
}

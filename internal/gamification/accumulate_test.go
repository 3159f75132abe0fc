package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestComputeAuditXPBaseOnly(t *testing.T) {
	assert.Equal(t, 100, ComputeAuditXP(1000, nil, nil))
}

func TestComputeAuditXPLengthBonuses(t *testing.T) {
	assert.Equal(t, 100, ComputeAuditXP(5000, nil, nil), "5000 is not over the medium threshold")
	assert.Equal(t, 150, ComputeAuditXP(5001, nil, nil))
	assert.Equal(t, 150, ComputeAuditXP(20000, nil, nil), "20000 is not over the long threshold")
	assert.Equal(t, 200, ComputeAuditXP(20001, nil, nil), "long bonus replaces the medium bonus")
}

func TestComputeAuditXPComprehensiveBonusOnce(t *testing.T) {
	// Both conditions true, bonus still applies once.
	helpTypes := []string{"Comprehensive Review", "a", "b", "c", "d"}
	assert.Equal(t, 150, ComputeAuditXP(100, helpTypes, nil))

	assert.Equal(t, 150, ComputeAuditXP(100, []string{"Comprehensive Review"}, nil))
	assert.Equal(t, 150, ComputeAuditXP(100, []string{"a", "b", "c", "d", "e"}, nil))
	assert.Equal(t, 100, ComputeAuditXP(100, []string{"a", "b", "c", "d"}, nil))
}

func TestComputeAuditXPReadinessBonus(t *testing.T) {
	assert.Equal(t, 125, ComputeAuditXP(100, nil, intPtr(80)))
	assert.Equal(t, 125, ComputeAuditXP(100, nil, intPtr(100)))
	assert.Equal(t, 100, ComputeAuditXP(100, nil, intPtr(79)))
	assert.Equal(t, 100, ComputeAuditXP(100, nil, nil))
}

func TestComputeAuditXPAllBonuses(t *testing.T) {
	got := ComputeAuditXP(25000, []string{"Comprehensive Review"}, intPtr(85))
	assert.Equal(t, 100+100+50+25, got)
}

func TestComputeStreakFirstActivity(t *testing.T) {
	today := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	res := ComputeStreak("", 0, today)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "2026-08-28", res.LastActiveDate)
}

func TestComputeStreakSameDayUnchanged(t *testing.T) {
	today := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	res := ComputeStreak("2026-08-28", 7, today)
	assert.Equal(t, 7, res.Streak)
	assert.Equal(t, "2026-08-28", res.LastActiveDate)
}

func TestComputeStreakConsecutiveDayIncrements(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 30, 0, 0, time.UTC)
	res := ComputeStreak("2026-08-27", 7, today)
	assert.Equal(t, 8, res.Streak)
	assert.Equal(t, "2026-08-28", res.LastActiveDate)
}

func TestComputeStreakGapResets(t *testing.T) {
	today := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	res := ComputeStreak("2026-08-25", 30, today)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, "2026-08-28", res.LastActiveDate)
}

func TestComputeStreakAcrossMonthBoundary(t *testing.T) {
	today := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	res := ComputeStreak("2026-08-31", 3, today)
	assert.Equal(t, 4, res.Streak)
}

func TestComputeLevelThresholds(t *testing.T) {
	assert.Equal(t, 1, ComputeLevel(0))
	assert.Equal(t, 1, ComputeLevel(999))
	assert.Equal(t, 2, ComputeLevel(1000))
	assert.Equal(t, 3, ComputeLevel(2999))
	// Reaching 3000 clears the 1000, 2000 and 3000 thresholds at once.
	assert.Equal(t, 4, ComputeLevel(3000))
	assert.Equal(t, 4, ComputeLevel(3999))
	assert.Equal(t, 1, ComputeLevel(-50))
}

package gamification

import "time"

const (
	baseAuditXP = 100

	longManuscriptChars   = 20000
	mediumManuscriptChars = 5000
	longManuscriptBonus   = 100
	mediumManuscriptBonus = 50

	comprehensiveHelpType  = "Comprehensive Review"
	manyHelpTypesCount     = 5
	comprehensiveBonus     = 50
	highReadinessScore     = 80
	highReadinessBonus     = 25

	levelStep = 1000
)

// StreakResult is the outcome of applying one active day to a streak.
type StreakResult struct {
	Streak         int
	LastActiveDate string
}

// ComputeAuditXP returns the XP earned by one completed audit.
// readinessScore is nil when the audit produced no usable score.
func ComputeAuditXP(textLength int, helpTypes []string, readinessScore *int) int {
	xp := baseAuditXP

	switch {
	case textLength > longManuscriptChars:
		xp += longManuscriptBonus
	case textLength > mediumManuscriptChars:
		xp += mediumManuscriptBonus
	}

	if containsHelpType(helpTypes, comprehensiveHelpType) || len(helpTypes) >= manyHelpTypesCount {
		xp += comprehensiveBonus
	}

	if readinessScore != nil && *readinessScore >= highReadinessScore {
		xp += highReadinessBonus
	}

	return xp
}

// ComputeStreak advances a daily streak. Dates are compared as calendar-day
// strings (YYYY-MM-DD), so a second audit on the same day leaves the streak
// unchanged and any gap longer than one day resets it.
func ComputeStreak(lastActiveDate string, currentStreak int, today time.Time) StreakResult {
	todayStr := today.Format("2006-01-02")
	yesterdayStr := today.AddDate(0, 0, -1).Format("2006-01-02")

	switch lastActiveDate {
	case "":
		return StreakResult{Streak: 1, LastActiveDate: todayStr}
	case todayStr:
		return StreakResult{Streak: currentStreak, LastActiveDate: todayStr}
	case yesterdayStr:
		return StreakResult{Streak: currentStreak + 1, LastActiveDate: todayStr}
	default:
		return StreakResult{Streak: 1, LastActiveDate: todayStr}
	}
}

// ComputeLevel maps total XP to a level. Reaching L*1000 cumulative XP clears
// the threshold into level L+1, so 3000 XP lands on level 4.
func ComputeLevel(totalXP int) int {
	level := 1
	for totalXP >= level*levelStep {
		level++
	}
	return level
}

func containsHelpType(helpTypes []string, want string) bool {
	for _, h := range helpTypes {
		if h == want {
			return true
		}
	}
	return false
}

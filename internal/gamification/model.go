package gamification

import "time"

// Profile is a user's accumulated gamification state.
type Profile struct {
	UserID         string    `json:"userId"`
	XP             int       `json:"xp"`
	Level          int       `json:"level"`
	Streak         int       `json:"streak"`
	LastActiveDate string    `json:"lastActiveDate,omitempty"`
	AuditsTotal    int       `json:"auditsTotal"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Reward describes what one completed audit added to a profile.
type Reward struct {
	XPEarned  int  `json:"xpEarned"`
	LeveledUp bool `json:"leveledUp"`
	NewLevel  int  `json:"newLevel"`
	Streak    int  `json:"streak"`
}

func defaultProfile(userID string) Profile {
	return Profile{
		UserID: userID,
		XP:     0,
		Level:  1,
		Streak: 0,
	}
}

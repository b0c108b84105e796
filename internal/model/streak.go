package model

import "time"

// PracticeStreak counts consecutive calendar days with at least one
// completed session. Invariant: CurrentStreak <= LongestStreak.
type PracticeStreak struct {
	UserID           string    `json:"user_id"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastPracticeDate time.Time `json:"last_practice_date"`
	StreakStartDate  time.Time `json:"streak_start_date"`
	TotalSessions    int       `json:"total_sessions"`
}

// StreakMilestones are the streak lengths that fire a one-time
// achievement notification when first crossed.
var StreakMilestones = []int{3, 7, 14, 30, 60, 100}

package model

import "time"

// Achievement categories.
const (
	AchievementDaily     = "daily"
	AchievementWeekly    = "weekly"
	AchievementMilestone = "milestone"
	AchievementSpecial   = "special"
	AchievementBonus     = "bonus"
	AchievementCustom    = "custom"
)

type Achievement struct {
	ID          int64     `json:"id"`
	MemberID    int64     `json:"member_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Progress    int       `json:"progress"`
	Target      int       `json:"target"`
	Secret      bool      `json:"secret"`
	CreatedAt   time.Time `json:"created_at"`
}

// Earned reports whether the achievement's progress has reached its target.
func (a *Achievement) Earned() bool {
	return a.Target > 0 && a.Progress >= a.Target
}

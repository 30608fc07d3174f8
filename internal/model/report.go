package model

// LeaderboardEntry is one row of the household leaderboard, ranked by
// point balance.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	MemberID        int64  `json:"member_id"`
	MemberName      string `json:"member_name"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	PointsEarned    int    `json:"points_earned"`
	PointsSpent     int    `json:"points_spent"`
	Balance         int    `json:"balance"`
	ChoresCompleted int    `json:"chores_completed"`
	StreakDays      int    `json:"streak_days"`
}

// MemberChoreStats is the per-member slice of the chore statistics report.
type MemberChoreStats struct {
	MemberID       int64   `json:"member_id"`
	MemberName     string  `json:"member_name"`
	Assigned       int     `json:"assigned"`
	Completed      int     `json:"completed"`
	PointsEarned   int     `json:"points_earned"`
	CompletionRate float64 `json:"completion_rate"`
}

// ChoreStats aggregates chore history for the household.
type ChoreStats struct {
	TotalChores    int                `json:"total_chores"`
	Completed      int                `json:"completed"`
	Pending        int                `json:"pending"`
	InProgress     int                `json:"in_progress"`
	AwaitingVerify int                `json:"awaiting_verification"`
	CompletionRate float64            `json:"completion_rate"`
	ByMember       []MemberChoreStats `json:"by_member"`
}

package model

import "time"

// Reward categories.
const (
	CategoryScreenTime = "screen_time"
	CategoryPrivilege  = "privilege"
	CategoryAllowance  = "allowance"
	CategoryCustom     = "custom"
)

type Reward struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointsCost  int       `json:"points_cost"`
	Category    string    `json:"category"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Redemption statuses.
const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)

type RewardRedemption struct {
	ID          int64      `json:"id"`
	RewardID    int64      `json:"reward_id"`
	MemberID    int64      `json:"member_id"`
	PointsSpent int        `json:"points_spent"`
	Status      string     `json:"status"`
	DecidedBy   *int64     `json:"decided_by"`
	DecidedAt   *time.Time `json:"decided_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PointsEntry is one row of the append-only ledger. A member's balance is
// always the sum of their deltas, never a stored counter.
type PointsEntry struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"member_id"`
	ChoreID   *int64    `json:"chore_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type PointBalance struct {
	MemberID    int64  `json:"member_id"`
	MemberName  string `json:"member_name"`
	TotalEarned int    `json:"total_earned"`
	TotalSpent  int    `json:"total_spent"`
	Balance     int    `json:"balance"`
}

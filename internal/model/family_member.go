package model

import "time"

// Member roles. A member's role is fixed at creation; there is no
// role-change operation.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Member statuses.
const (
	MemberActive        = "active"
	MemberInactive      = "inactive"
	MemberNeedsApproval = "needs_approval"
)

// Capabilities is the fixed-shape permission record carried by parent
// members. Child members always have the zero value.
type Capabilities struct {
	ManageRewards bool `json:"manage_rewards"`
	AssignChores  bool `json:"assign_chores"`
	ApproveChores bool `json:"approve_chores"`
	ManagePoints  bool `json:"manage_points"`
}

// AllCapabilities is granted to the founding parent of a household.
var AllCapabilities = Capabilities{
	ManageRewards: true,
	AssignChores:  true,
	ApproveChores: true,
	ManagePoints:  true,
}

type FamilyMember struct {
	ID           int64  `json:"id"`
	HouseholdID  int64  `json:"household_id"`
	UserID       *int64 `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	Capabilities Capabilities `json:"capabilities"`
	Age          *int         `json:"age"`
	Difficulty   string    `json:"preferred_difficulty"`
	WeeklyCap    *int      `json:"weekly_chore_cap"`
	AvatarURL    string    `json:"avatar_url"`
	StreakCount  int       `json:"streak_count"`
	HasPIN       bool      `json:"has_pin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Can reports whether the member holds the given capability. Children never
// hold capabilities regardless of what is stored.
func (m *FamilyMember) Can(check func(Capabilities) bool) bool {
	if m.Role != RoleParent {
		return false
	}
	return check(m.Capabilities)
}

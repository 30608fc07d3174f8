package model

import "time"

// Chore recurrence values.
const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// Chore priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Chore struct {
	ID                   int64      `json:"id"`
	HouseholdID          int64      `json:"household_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Points               int        `json:"points"`
	Status               string     `json:"status"`
	AssignedTo           *int64     `json:"assigned_to"`
	DueDate              *time.Time `json:"due_date"`
	Recurrence           string     `json:"recurrence"`
	Priority             string     `json:"priority"`
	VerificationRequired bool       `json:"verification_required"`
	VerifiedAt           *time.Time `json:"verified_at"`
	VerifiedBy           *int64     `json:"verified_by"`
	CreatedBy            *int64     `json:"created_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ChoreImage types.
const (
	ImageBefore    = "before"
	ImageAfter     = "after"
	ImageReference = "reference"
)

// ChoreImage rows are append-only; they go away only when the chore is
// deleted.
type ChoreImage struct {
	ID         int64     `json:"id"`
	ChoreID    int64     `json:"chore_id"`
	URL        string    `json:"url"`
	ObjectKey  string    `json:"-"`
	Type       string    `json:"type"`
	UploadedBy *int64    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

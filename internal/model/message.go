package model

import "time"

// ChatMessage is a family chat message. A nil ReceiverID means broadcast to
// the whole household. Messages are append-only; there is no edit or delete.
type ChatMessage struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	SenderID    int64     `json:"sender_id"`
	ReceiverID  *int64    `json:"receiver_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChoreMessage is one entry in a chore's discussion thread.
type ChoreMessage struct {
	ID        int64     `json:"id"`
	ChoreID   int64     `json:"chore_id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

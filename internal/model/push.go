package model

import "time"

// Notification type constants
const (
	NotifTypeChoreAssigned      = "chore_assigned"
	NotifTypeChoreDue           = "chore_due"
	NotifTypeVerificationNeeded = "verification_needed"
	NotifTypeRedemptionRequest  = "redemption_request"
	NotifTypeMessage            = "message"
)

type PushSubscription struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	HouseholdID int64     `json:"household_id"`
	Endpoint    string    `json:"endpoint"`
	P256dhKey   string    `json:"p256dh_key"`
	AuthKey     string    `json:"auth_key"`
	DeviceName  string    `json:"device_name"`
	CreatedAt   time.Time `json:"created_at"`
}

package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

// Notifier sends event-driven notifications to the right household members.
// All methods are fire-and-forget; failures are logged, never surfaced to
// the triggering request.
type Notifier struct {
	service *Service
	push    *store.PushStore
	members *store.FamilyMemberStore
	logger  *slog.Logger
}

func NewNotifier(svc *Service, pushStore *store.PushStore, memberStore *store.FamilyMemberStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		push:    pushStore,
		members: memberStore,
		logger:  logger.With("component", "push"),
	}
}

// ChoreAssigned notifies the assignee that a chore landed on their list.
func (n *Notifier) ChoreAssigned(householdID, memberID int64, choreTitle string) {
	if !n.service.Configured() {
		return
	}
	member, err := n.members.GetByID(householdID, memberID)
	if err != nil || member == nil || member.UserID == nil {
		return
	}
	n.sendToUser(*member.UserID, Payload{
		Title: "New Chore",
		Body:  fmt.Sprintf("%q was assigned to you", choreTitle),
		URL:   "/chores",
		Tag:   model.NotifTypeChoreAssigned,
	})
}

// VerificationNeeded notifies parents that a chore is waiting for sign-off.
func (n *Notifier) VerificationNeeded(householdID int64, memberName, choreTitle string) {
	if !n.service.Configured() {
		return
	}
	n.sendToParents(householdID, Payload{
		Title: "Chore Needs Verification",
		Body:  fmt.Sprintf("%s finished %q", memberName, choreTitle),
		URL:   "/chores",
		Tag:   model.NotifTypeVerificationNeeded,
	})
}

// RedemptionRequested notifies parents of a pending reward redemption.
func (n *Notifier) RedemptionRequested(householdID int64, memberName, rewardTitle string) {
	if !n.service.Configured() {
		return
	}
	n.sendToParents(householdID, Payload{
		Title: "Reward Request",
		Body:  fmt.Sprintf("%s wants to redeem %q", memberName, rewardTitle),
		URL:   "/rewards",
		Tag:   model.NotifTypeRedemptionRequest,
	})
}

// MessageReceived notifies a direct message's recipient.
func (n *Notifier) MessageReceived(householdID, receiverID int64, senderName string) {
	if !n.service.Configured() {
		return
	}
	member, err := n.members.GetByID(householdID, receiverID)
	if err != nil || member == nil || member.UserID == nil {
		return
	}
	n.sendToUser(*member.UserID, Payload{
		Title: "New Message",
		Body:  fmt.Sprintf("%s sent you a message", senderName),
		URL:   "/messages",
		Tag:   model.NotifTypeMessage,
	})
}

// FamilyAnnouncement notifies every subscribed device in the household of a
// broadcast chat message, skipping the sender's own devices.
func (n *Notifier) FamilyAnnouncement(householdID, senderUserID int64, senderName string) {
	if !n.service.Configured() {
		return
	}
	subs, err := n.push.ListByHousehold(householdID)
	if err != nil {
		n.logger.Error("list subscriptions", "error", err)
		return
	}
	payload := Payload{
		Title: "Family Chat",
		Body:  fmt.Sprintf("%s posted to the family chat", senderName),
		URL:   "/messages",
		Tag:   model.NotifTypeMessage,
	}
	for _, sub := range subs {
		if sub.UserID == senderUserID {
			continue
		}
		n.deliver(&sub, payload)
	}
}

func (n *Notifier) sendToParents(householdID int64, payload Payload) {
	members, err := n.members.List(householdID)
	if err != nil {
		n.logger.Error("list members", "error", err)
		return
	}
	for _, m := range members {
		if m.Role != model.RoleParent || m.UserID == nil {
			continue
		}
		n.sendToUser(*m.UserID, payload)
	}
}

func (n *Notifier) sendToUser(userID int64, payload Payload) {
	subs, err := n.push.ListByUser(userID)
	if err != nil {
		n.logger.Error("list subscriptions", "error", err)
		return
	}
	for _, sub := range subs {
		n.deliver(&sub, payload)
	}
}

func (n *Notifier) deliver(sub *model.PushSubscription, payload Payload) {
	if err := n.service.Send(sub, payload); err != nil {
		if errors.Is(err, ErrExpired) {
			n.push.DeleteByEndpoint(sub.Endpoint)
		} else {
			n.logger.Warn("send notification", "error", err)
		}
	}
}

package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parentpal/parentpal/internal/achievement"
	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

type AchievementHandler struct {
	achievements *store.AchievementStore
	members      *store.FamilyMemberStore
	messages     *store.MessageStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewAchievementHandler(as *store.AchievementStore, ms *store.FamilyMemberStore, msgs *store.MessageStore, hub *websocket.Hub, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{
		achievements: as,
		members:      ms,
		messages:     msgs,
		hub:          hub,
		logger:       logger.With("component", "achievements"),
	}
}

// ListByMember returns a member's achievements. Secret achievements stay
// hidden from everyone, including the member, until they are earned.
func (h *AchievementHandler) ListByMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.members.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	all, err := h.achievements.ListByMember(id)
	if err != nil {
		h.logger.Error("list achievements", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list achievements")
		return
	}

	visible := make([]model.Achievement, 0, len(all))
	for _, a := range all {
		if a.Secret && !a.Earned() {
			continue
		}
		visible = append(visible, a)
	}
	writeJSON(w, http.StatusOK, visible)
}

// Create adds a custom achievement for a member. Parent-only by routing.
func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID    int64  `json:"member_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Target      int    `json:"target"`
		Secret      bool   `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Target < 1 {
		writeError(w, http.StatusBadRequest, "target must be at least 1")
		return
	}
	switch req.Category {
	case "":
		req.Category = model.AchievementCustom
	case model.AchievementDaily, model.AchievementWeekly, model.AchievementMilestone,
		model.AchievementSpecial, model.AchievementBonus, model.AchievementCustom:
	default:
		writeError(w, http.StatusBadRequest, "unknown achievement category")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	member, err := h.members.GetByID(householdID, req.MemberID)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	existing, err := h.achievements.GetByTitle(req.MemberID, req.Title)
	if err != nil {
		h.logger.Error("check achievement title", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create achievement")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "member already has an achievement with this title")
		return
	}

	a, err := h.achievements.Create(req.MemberID, req.Title, req.Description, req.Category, 0, req.Target, req.Secret)
	if err != nil {
		writeStoreError(w, err, "failed to create achievement")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// UpdateProgress bumps a custom achievement along. Parent-only by routing.
func (h *AchievementHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Progress int `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Progress < 0 {
		writeError(w, http.StatusBadRequest, "progress cannot be negative")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	a, _ := h.achievementInHousehold(w, householdID, id)
	if a == nil {
		return
	}

	wasEarned := a.Earned()
	updated, err := h.achievements.UpdateProgress(id, req.Progress)
	if err != nil {
		writeStoreError(w, err, "failed to update achievement")
		return
	}

	if !wasEarned && updated.Earned() && h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID),
			websocket.NewMessage("achievement", "earned", updated.ID, map[string]any{
				"member_id": updated.MemberID,
				"title":     updated.Title,
			}))
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a custom achievement. Parent-only by routing; earned
// milestone achievements stay on the record.
func (h *AchievementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	a, _ := h.achievementInHousehold(w, householdID, id)
	if a == nil {
		return
	}
	if a.Earned() {
		writeError(w, http.StatusConflict, "cannot delete an earned achievement")
		return
	}

	if err := h.achievements.Delete(id); err != nil {
		h.logger.Error("delete achievement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete achievement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Share announces an earned achievement in the family chat.
func (h *AchievementHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	a, owner := h.achievementInHousehold(w, householdID, id)
	if a == nil {
		return
	}
	if !a.Earned() {
		writeError(w, http.StatusConflict, "achievement has not been earned yet")
		return
	}
	if a.MemberID != auth.MemberID(r.Context()) && !auth.IsParent(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot share another member's achievement")
		return
	}

	announcement := fmt.Sprintf("%s earned %s", owner.Name,
		achievement.Describe(achievement.Milestone{Title: a.Title, Description: a.Description}))
	msg, err := h.messages.CreateChat(householdID, auth.MemberID(r.Context()), nil, announcement)
	if err != nil {
		h.logger.Error("share achievement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to share achievement")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID),
			websocket.NewMessage("message", "created", msg.ID, map[string]any{"sender_id": msg.SenderID}))
		h.hub.Broadcast(websocket.Everyone(householdID),
			websocket.NewMessage("achievement", "shared", a.ID, map[string]any{
				"member_id": a.MemberID,
				"title":     a.Title,
			}))
	}
	writeJSON(w, http.StatusOK, msg)
}

// achievementInHousehold loads an achievement and checks its owner belongs
// to the caller's household.
func (h *AchievementHandler) achievementInHousehold(w http.ResponseWriter, householdID, id int64) (*model.Achievement, *model.FamilyMember) {
	a, err := h.achievements.GetByID(id)
	if err != nil {
		h.logger.Error("get achievement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load achievement")
		return nil, nil
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "achievement not found")
		return nil, nil
	}
	owner, err := h.members.GetByID(householdID, a.MemberID)
	if err != nil {
		h.logger.Error("get achievement owner", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load achievement")
		return nil, nil
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "achievement not found")
		return nil, nil
	}
	return a, owner
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/push"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

type RewardHandler struct {
	rewards  *store.RewardStore
	members  *store.FamilyMemberStore
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewRewardHandler(
	rs *store.RewardStore,
	ms *store.FamilyMemberStore,
	hub *websocket.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *RewardHandler {
	return &RewardHandler{
		rewards:  rs,
		members:  ms,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With("component", "rewards"),
	}
}

func (h *RewardHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID), msg)
	}
}

func (h *RewardHandler) requireManageRewards(w http.ResponseWriter, r *http.Request) *model.FamilyMember {
	actor, err := h.members.GetByID(auth.HouseholdID(r.Context()), auth.MemberID(r.Context()))
	if err != nil || actor == nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve member")
		return nil
	}
	if !actor.Can(func(c model.Capabilities) bool { return c.ManageRewards }) {
		writeError(w, http.StatusForbidden, "managing rewards requires the manage_rewards capability")
		return nil
	}
	return actor
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PointsCost  int    `json:"points_cost"`
	Category    string `json:"category"`
	Active      *bool  `json:"active"`
}

func (r *rewardRequest) validate() (store.RewardParams, string) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return store.RewardParams{}, "title is required"
	}
	if r.PointsCost <= 0 {
		return store.RewardParams{}, "points_cost must be positive"
	}

	category := r.Category
	switch category {
	case "":
		category = model.CategoryCustom
	case model.CategoryScreenTime, model.CategoryPrivilege, model.CategoryAllowance, model.CategoryCustom:
	default:
		return store.RewardParams{}, "unknown reward category"
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return store.RewardParams{
		Title:       title,
		Description: r.Description,
		PointsCost:  r.PointsCost,
		Category:    category,
		Active:      active,
	}, ""
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	// Children see only active rewards; parents see the full catalog.
	activeOnly := !auth.IsParent(r.Context())
	if r.URL.Query().Get("active") == "true" {
		activeOnly = true
	}

	rewards, err := h.rewards.List(auth.HouseholdID(r.Context()), activeOnly)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	reward, err := h.rewards.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reward")
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.requireManageRewards(w, r) == nil {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	householdID := auth.HouseholdID(r.Context())
	reward, err := h.rewards.Create(householdID, params)
	if err != nil {
		writeStoreError(w, err, "failed to create reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "created", reward.ID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.requireManageRewards(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	householdID := auth.HouseholdID(r.Context())
	reward, err := h.rewards.Update(householdID, id, params)
	if err != nil {
		writeStoreError(w, err, "failed to update reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.requireManageRewards(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	reward, err := h.rewards.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}

	if err := h.rewards.Delete(householdID, id); err != nil {
		h.logger.Error("delete reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Redeem places a pending redemption request. Points are not deducted yet;
// the balance check counts other pending requests as holds so a member
// cannot over-commit.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	reward, err := h.rewards.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load reward")
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return
	}
	if !reward.Active {
		writeError(w, http.StatusConflict, "reward is not available")
		return
	}

	memberID := auth.MemberID(r.Context())
	redemption, err := h.rewards.RequestRedemption(reward, memberID)
	if err != nil {
		writeStoreError(w, err, "failed to request redemption")
		return
	}

	member, err := h.members.GetByID(householdID, memberID)
	if err == nil && member != nil {
		h.notifier.RedemptionRequested(householdID, member.Name, reward.Title)
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.Parents(householdID),
			websocket.NewMessage("redemption", "requested", redemption.ID, map[string]any{
				"member_id": memberID,
				"reward_id": reward.ID,
			}))
	}
	writeJSON(w, http.StatusCreated, redemption)
}

func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.RedemptionPending, model.RedemptionApproved, model.RedemptionRejected:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	redemptions, err := h.rewards.ListRedemptions(auth.HouseholdID(r.Context()), status)
	if err != nil {
		h.logger.Error("list redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// redemptionInHousehold guards against deciding another household's
// redemption. A miss reads as not found.
func (h *RewardHandler) redemptionInHousehold(w http.ResponseWriter, householdID, id int64) bool {
	redemption, err := h.rewards.GetRedemption(id)
	if err != nil {
		h.logger.Error("get redemption", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load redemption")
		return false
	}
	if redemption == nil {
		writeError(w, http.StatusNotFound, "redemption not found")
		return false
	}
	reward, err := h.rewards.GetByID(householdID, redemption.RewardID)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load redemption")
		return false
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "redemption not found")
		return false
	}
	return true
}

// Approve finalizes a pending redemption, deducting the points. The store
// re-checks the balance inside the transaction.
func (h *RewardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := h.requireManageRewards(w, r)
	if actor == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if !h.redemptionInHousehold(w, householdID, id) {
		return
	}

	redemption, err := h.rewards.ApproveRedemption(id, actor.ID)
	if err != nil {
		writeStoreError(w, err, "failed to approve redemption")
		return
	}
	if redemption == nil {
		writeError(w, http.StatusNotFound, "no pending redemption with that id")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("redemption", "approved", id, map[string]any{
		"member_id": redemption.MemberID,
	}))
	writeJSON(w, http.StatusOK, redemption)
}

func (h *RewardHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor := h.requireManageRewards(w, r)
	if actor == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if !h.redemptionInHousehold(w, householdID, id) {
		return
	}

	redemption, err := h.rewards.RejectRedemption(id, actor.ID)
	if err != nil {
		writeStoreError(w, err, "failed to reject redemption")
		return
	}
	if redemption == nil {
		writeError(w, http.StatusNotFound, "no pending redemption with that id")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("redemption", "rejected", id, map[string]any{
		"member_id": redemption.MemberID,
	}))
	writeJSON(w, http.StatusOK, redemption)
}

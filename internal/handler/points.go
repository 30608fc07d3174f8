package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

const defaultHistoryLimit = 50

type PointsHandler struct {
	points  *store.PointsStore
	members *store.FamilyMemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewPointsHandler(ps *store.PointsStore, ms *store.FamilyMemberStore, hub *websocket.Hub, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{
		points:  ps,
		members: ms,
		hub:     hub,
		logger:  logger.With("component", "points"),
	}
}

// memberInHousehold resolves the path member and checks visibility: children
// may only look at their own ledger.
func (h *PointsHandler) memberInHousehold(w http.ResponseWriter, r *http.Request) *model.FamilyMember {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	if !auth.IsParent(r.Context()) && id != auth.MemberID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot view another member's points")
		return nil
	}

	member, err := h.members.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return nil
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return nil
	}
	return member
}

func (h *PointsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	member := h.memberInHousehold(w, r)
	if member == nil {
		return
	}

	balance, err := h.points.Balance(member.ID)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"member_id": member.ID,
		"balance":   balance,
	})
}

func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	member := h.memberInHousehold(w, r)
	if member == nil {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	history, err := h.points.History(member.ID, limit)
	if err != nil {
		h.logger.Error("get history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load points history")
		return
	}
	if history == nil {
		history = []model.PointsEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

// Balances lists every active member's earned/spent/balance totals.
func (h *PointsHandler) Balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.points.Balances(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list balances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list balances")
		return
	}
	if balances == nil {
		balances = []model.PointBalance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// Adjust appends a manual ledger entry, positive or negative. Deductions
// that would take the balance below zero are rejected by the store.
func (h *PointsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, err := h.members.GetByID(auth.HouseholdID(r.Context()), auth.MemberID(r.Context()))
	if err != nil || actor == nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve member")
		return
	}
	if !actor.Can(func(c model.Capabilities) bool { return c.ManagePoints }) {
		writeError(w, http.StatusForbidden, "adjusting points requires the manage_points capability")
		return
	}

	var req struct {
		MemberID int64  `json:"member_id"`
		Delta    int    `json:"delta"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta cannot be zero")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	target, err := h.members.GetByID(householdID, req.MemberID)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	entry, err := h.points.Add(target.ID, nil, req.Delta, req.Reason)
	if err != nil {
		writeStoreError(w, err, "failed to adjust points")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID),
			websocket.NewMessage("points", "adjusted", target.ID, map[string]any{"delta": req.Delta}))
	}
	writeJSON(w, http.StatusCreated, entry)
}

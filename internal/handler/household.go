package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	members    *store.FamilyMemberStore
	sessions   *store.SessionStore
	jwtSecret  []byte
	logger     *slog.Logger
}

func NewHouseholdHandler(
	hs *store.HouseholdStore,
	ms *store.FamilyMemberStore,
	ss *store.SessionStore,
	jwtSecret []byte,
	logger *slog.Logger,
) *HouseholdHandler {
	return &HouseholdHandler{
		households: hs,
		members:    ms,
		sessions:   ss,
		jwtSecret:  jwtSecret,
		logger:     logger.With("component", "households"),
	}
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	hh, err := h.households.GetByID(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}
	if hh == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	hh, err := h.households.Update(auth.HouseholdID(r.Context()), req.Name)
	if err != nil {
		writeStoreError(w, err, "failed to update household")
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// ListMine lists every household the user belongs to, for the switcher UI.
func (h *HouseholdHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	households, err := h.households.ListForUser(ac.UserID)
	if err != nil {
		h.logger.Error("list households", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list households")
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}

// Switch rebinds the caller's session to another household they belong to
// and issues a fresh bearer token for it.
func (h *HouseholdHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HouseholdID int64 `json:"household_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	member, err := h.members.ResolveForUser(req.HouseholdID, ac.UserID)
	if err != nil {
		h.logger.Error("resolve member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to switch household")
		return
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "you are not a member of that household")
		return
	}

	if ac.SessionID != 0 {
		if err := h.sessions.UpdateHouseholdID(ac.SessionID, req.HouseholdID); err != nil {
			h.logger.Error("update session household", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to switch household")
			return
		}
	}

	token, err := auth.GenerateToken(h.jwtSecret, ac.UserID, req.HouseholdID, tokenTTL)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to switch household")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"household_id": req.HouseholdID,
		"member":       member,
		"token":        token,
	})
}

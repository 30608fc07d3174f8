package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/email"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/storage"
	"github.com/parentpal/parentpal/internal/store"
	"github.com/parentpal/parentpal/internal/websocket"
)

const maxAvatarBytes = 5 << 20

type FamilyMemberHandler struct {
	members       *store.FamilyMemberStore
	households    *store.HouseholdStore
	verifications *store.VerificationStore
	emailClient   *email.Client
	objects       *storage.Store
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewFamilyMemberHandler(
	ms *store.FamilyMemberStore,
	hs *store.HouseholdStore,
	vs *store.VerificationStore,
	ec *email.Client,
	objects *storage.Store,
	hub *websocket.Hub,
	logger *slog.Logger,
) *FamilyMemberHandler {
	return &FamilyMemberHandler{
		members:       ms,
		households:    hs,
		verifications: vs,
		emailClient:   ec,
		objects:       objects,
		hub:           hub,
		logger:        logger.With("component", "members"),
	}
}

func (h *FamilyMemberHandler) broadcast(householdID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.Everyone(householdID), msg)
	}
}

type memberRequest struct {
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Role         string             `json:"role"`
	Capabilities model.Capabilities `json:"capabilities"`
	Age          *int               `json:"age"`
	Difficulty   string             `json:"difficulty"`
	WeeklyCap    *int               `json:"weekly_chore_cap"`
}

func (r *memberRequest) params() store.MemberParams {
	return store.MemberParams{
		Name:         strings.TrimSpace(r.Name),
		Email:        r.Email,
		Capabilities: r.Capabilities,
		Age:          r.Age,
		Difficulty:   r.Difficulty,
		WeeklyCap:    r.WeeklyCap,
	}
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list family members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	member, err := h.members.GetByID(auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load family member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Role != model.RoleParent && req.Role != model.RoleChild {
		writeError(w, http.StatusBadRequest, "role must be parent or child")
		return
	}

	householdID := auth.HouseholdID(r.Context())

	// Members with an email join through an invite code. Invited parents
	// stay pending until they accept; children are usable right away.
	hasEmail := strings.TrimSpace(req.Email) != ""
	status := model.MemberActive
	if req.Role == model.RoleParent && hasEmail {
		status = model.MemberNeedsApproval
	}

	member, err := h.members.Create(householdID, nil, req.Role, status, req.params())
	if err != nil {
		writeStoreError(w, err, "failed to create family member")
		return
	}

	if hasEmail {
		h.invite(householdID, member)
	}

	h.broadcast(householdID, websocket.NewMessage("member", "created", member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	member, err := h.members.Update(householdID, id, req.params())
	if err != nil {
		writeStoreError(w, err, "failed to update family member")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("member", "updated", id, nil))
	writeJSON(w, http.StatusOK, member)
}

// UpdateStatus moves a member between active, inactive, and needs_approval.
// Deactivating keeps the profile and its history without letting the member
// act in the household.
func (h *FamilyMemberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch req.Status {
	case model.MemberActive, model.MemberInactive, model.MemberNeedsApproval:
	default:
		writeError(w, http.StatusBadRequest, "status must be active, inactive, or needs_approval")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if id == auth.MemberID(r.Context()) && req.Status != model.MemberActive {
		writeError(w, http.StatusBadRequest, "cannot deactivate your own profile")
		return
	}

	member, err := h.members.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member status")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	updated, err := h.members.UpdateStatus(householdID, id, req.Status)
	if err != nil {
		writeStoreError(w, err, "failed to update member status")
		return
	}

	h.broadcast(householdID, websocket.NewMessage("member", "updated", id, map[string]any{"status": req.Status}))
	writeJSON(w, http.StatusOK, updated)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if id == auth.MemberID(r.Context()) {
		writeError(w, http.StatusBadRequest, "cannot remove your own profile")
		return
	}

	member, err := h.members.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove family member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	avatarKey, err := h.members.AvatarKey(householdID, id)
	if err != nil {
		h.logger.Warn("get avatar key", "error", err)
	}

	if err := h.members.Delete(householdID, id); err != nil {
		h.logger.Error("delete member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove family member")
		return
	}

	if avatarKey != "" {
		if err := h.objects.Delete(r.Context(), avatarKey); err != nil {
			h.logger.Warn("delete avatar object", "error", err)
		}
	}

	h.broadcast(householdID, websocket.NewMessage("member", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Invite re-sends an invitation code to a member with an email.
func (h *FamilyMemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	member, err := h.members.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	if member.Email == "" {
		writeError(w, http.StatusBadRequest, "member has no email to invite")
		return
	}

	h.invite(householdID, member)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "invite sent"})
}

func (h *FamilyMemberHandler) invite(householdID int64, member *model.FamilyMember) {
	vc, err := h.verifications.Create(member.Email, model.PurposeInvite, &householdID)
	if err != nil {
		h.logger.Error("create invite code", "error", err)
		return
	}
	if !h.emailClient.Configured() {
		h.logger.Warn("email not configured, invite not sent", "member_id", member.ID)
		return
	}

	name := ""
	if hh, err := h.households.GetByID(householdID); err == nil && hh != nil {
		name = hh.Name
	}
	if err := h.emailClient.SendVerificationCode(member.Email, vc.Code, model.PurposeInvite, name); err != nil {
		h.logger.Error("send invite", "error", err)
	}
}

// UploadAvatar stores a new avatar image, then swaps the member's avatar
// reference. The object upload happens first; if the DB update fails the
// fresh object is deleted so nothing orphans.
func (h *FamilyMemberHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if !h.objects.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	member, err := h.members.GetByID(householdID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to upload avatar")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	file, header, err := readImageUpload(w, r, maxAvatarBytes)
	if err != nil {
		return
	}
	defer file.Close()

	key, url, err := h.objects.Upload(r.Context(), "avatars", file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("upload avatar", "error", err)
		writeError(w, http.StatusBadGateway, "failed to store image")
		return
	}

	prevKey, err := h.members.SetAvatar(householdID, id, url, key)
	if err != nil {
		h.logger.Error("set avatar", "error", err)
		if derr := h.objects.Delete(r.Context(), key); derr != nil {
			h.logger.Warn("compensating delete failed", "key", key, "error", derr)
		}
		writeError(w, http.StatusInternalServerError, "failed to save avatar")
		return
	}
	if prevKey != "" {
		if err := h.objects.Delete(r.Context(), prevKey); err != nil {
			h.logger.Warn("delete previous avatar", "key", prevKey, "error", err)
		}
	}

	h.broadcast(householdID, websocket.NewMessage("member", "updated", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// SetPIN sets or clears a member's device-switch PIN.
func (h *FamilyMemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	if req.PIN == "" {
		if err := h.members.ClearPIN(householdID, id); err != nil {
			h.logger.Error("clear pin", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to clear PIN")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return
	}

	if len(req.PIN) < 4 || len(req.PIN) > 8 || !isDigits(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be 4-8 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	if err := h.members.SetPIN(householdID, id, string(hash)); err != nil {
		h.logger.Error("set pin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

// VerifyPIN checks a member's PIN, for switching profiles on a shared device.
func (h *FamilyMemberHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.members.GetPINHash(auth.HouseholdID(r.Context()), id)
	if err != nil {
		writeStoreError(w, err, "failed to verify PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "member has no PIN")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

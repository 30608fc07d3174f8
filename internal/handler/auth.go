package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/email"
	"github.com/parentpal/parentpal/internal/middleware"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

const (
	maxCodeAttempts = 5
	tokenTTL        = 24 * time.Hour
)

type AuthHandler struct {
	users         *store.UserStore
	households    *store.HouseholdStore
	sessions      *store.SessionStore
	members       *store.FamilyMemberStore
	verifications *store.VerificationStore
	emailClient   *email.Client
	jwtSecret     []byte
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	hs *store.HouseholdStore,
	ss *store.SessionStore,
	ms *store.FamilyMemberStore,
	vs *store.VerificationStore,
	ec *email.Client,
	jwtSecret []byte,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:         us,
		households:    hs,
		sessions:      ss,
		members:       ms,
		verifications: vs,
		emailClient:   ec,
		jwtSecret:     jwtSecret,
		secureCookies: secureCookies,
		logger:        logger.With("component", "auth"),
	}
}

// Register creates a user, their household, and a parent profile with full
// capabilities, then emails a sign-in code.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		HouseholdName string `json:"household_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Name == "" || req.HouseholdName == "" {
		writeError(w, http.StatusBadRequest, "name and household_name are required")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	user, err := h.users.Create(req.Email, req.Name)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	household, err := h.households.Create(req.HouseholdName)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if _, err := h.members.Create(household.ID, &user.ID, model.RoleParent, model.MemberActive, store.MemberParams{
		Name:         req.Name,
		Email:        req.Email,
		Capabilities: model.AllCapabilities,
	}); err != nil {
		h.logger.Error("create parent profile", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.sendCode(req.Email, model.PurposeRegister, nil, "")

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code sent"})
}

// Login emails a sign-in code. The response is identical whether or not the
// account exists, to avoid user enumeration.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	defer writeJSON(w, http.StatusAccepted, map[string]string{"status": "verification code sent"})

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		return
	}
	if user == nil {
		return
	}

	h.sendCode(req.Email, model.PurposeLogin, nil, "")
}

// Verify exchanges an emailed code for a session cookie and a bearer token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || len(req.Code) != 6 || !isDigits(req.Code) {
		writeError(w, http.StatusBadRequest, "email and a 6-digit code are required")
		return
	}

	vc, err := h.verifications.GetLatestByEmail(req.Email)
	if err != nil {
		h.logger.Error("verification lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	if vc == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	if vc.Attempts >= maxCodeAttempts {
		writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
		return
	}
	if vc.Code != req.Code {
		if _, err := h.verifications.IncrementAttempts(vc.ID); err != nil {
			h.logger.Error("increment attempts", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	if err := h.verifications.MarkUsed(vc.ID); err != nil {
		h.logger.Error("mark code used", "error", err)
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("user lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	if user == nil {
		// Invited members get their account on first acceptance.
		if vc.Purpose != model.PurposeInvite {
			writeError(w, http.StatusUnauthorized, "invalid or expired code")
			return
		}
		user, err = h.users.Create(req.Email, "")
		if err != nil {
			h.logger.Error("create invited user", "error", err)
			writeError(w, http.StatusInternalServerError, "verification failed")
			return
		}
	}

	householdID, err := h.resolveHousehold(user.ID, vc)
	if err != nil {
		h.logger.Error("resolve household", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	if householdID == 0 {
		writeError(w, http.StatusUnauthorized, "no household for this account")
		return
	}

	// Invite codes link the user to the member profile that was invited.
	if vc.Purpose == model.PurposeInvite {
		if _, err := h.members.LinkUserByEmail(householdID, req.Email, user.ID); err != nil {
			h.logger.Error("link invited member", "error", err)
			writeError(w, http.StatusInternalServerError, "verification failed")
			return
		}
	}

	sess, err := h.sessions.Create(user.ID, householdID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, user.ID, householdID, tokenTTL)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"household_id": householdID,
		"token":        token,
	})
}

// resolveHousehold picks the household a fresh session binds to: the one the
// code was scoped to (invites), else the user's first household.
func (h *AuthHandler) resolveHousehold(userID int64, vc *model.VerificationCode) (int64, error) {
	if vc.HouseholdID != nil {
		return *vc.HouseholdID, nil
	}
	households, err := h.households.ListForUser(userID)
	if err != nil {
		return 0, err
	}
	if len(households) == 0 {
		return 0, nil
	}
	return households[0].ID, nil
}

// Logout deletes the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.SessionID != 0 {
		if err := h.sessions.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user and their resolved member profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := h.users.GetByID(ac.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	member, err := h.members.GetByID(ac.HouseholdID, ac.MemberID)
	if err != nil || member == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":         user,
		"member":       member,
		"household_id": ac.HouseholdID,
	})
}

func (h *AuthHandler) sendCode(toEmail, purpose string, householdID *int64, householdName string) {
	vc, err := h.verifications.Create(toEmail, purpose, householdID)
	if err != nil {
		h.logger.Error("create verification code", "error", err)
		return
	}
	if !h.emailClient.Configured() {
		h.logger.Warn("email not configured, code not sent", "purpose", purpose)
		return
	}
	if err := h.emailClient.SendVerificationCode(toEmail, vc.Code, purpose, householdName); err != nil {
		h.logger.Error("send verification code", "error", err)
	}
}

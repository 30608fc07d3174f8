package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/store"
)

const SessionCookieName = "parentpal_session"

// Authenticator resolves requests to an AuthContext. Browser clients carry a
// session cookie; API clients may send a JWT bearer token instead.
type Authenticator struct {
	sessions  *store.SessionStore
	members   *store.FamilyMemberStore
	jwtSecret []byte
}

func NewAuthenticator(sessions *store.SessionStore, members *store.FamilyMemberStore, jwtSecret []byte) *Authenticator {
	return &Authenticator{
		sessions:  sessions,
		members:   members,
		jwtSecret: jwtSecret,
	}
}

// RequireAuth authenticates the request and populates AuthContext with the
// user, household, and resolved family-member profile. Users linked to both
// a parent and a child profile resolve to the parent one.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, householdID, sessionID, ok := a.identify(r)
		if !ok {
			unauthorized(w)
			return
		}

		member, err := a.members.ResolveForUser(householdID, userID)
		if err != nil || member == nil {
			unauthorized(w)
			return
		}

		ac := auth.AuthContext{
			UserID:      userID,
			HouseholdID: householdID,
			MemberID:    member.ID,
			Role:        member.Role,
			SessionID:   sessionID,
		}

		ctx := auth.WithAuth(r.Context(), ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) identify(r *http.Request) (userID, householdID, sessionID int64, ok bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		uid, hid, err := auth.ParseToken(a.jwtSecret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			return 0, 0, 0, false
		}
		return uid, hid, 0, true
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return 0, 0, 0, false
	}
	sess, err := a.sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		return 0, 0, 0, false
	}
	return sess.UserID, sess.HouseholdID, sess.ID, true
}

// RequireParent rejects requests whose resolved profile is not a parent.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "forbidden"})
}

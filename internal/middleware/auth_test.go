package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/database"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

var testSecret = []byte("test-jwt-secret")

func setupAuthTest(t *testing.T) (*Authenticator, *store.SessionStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hh, err := store.NewHouseholdStore(db).Create("The Testers")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	user, err := store.NewUserStore(db).Create("ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	members := store.NewFamilyMemberStore(db)
	if _, err := members.Create(hh.ID, &user.ID, model.RoleParent, model.MemberActive, store.MemberParams{
		Name: "Ana", Capabilities: model.AllCapabilities,
	}); err != nil {
		t.Fatalf("create member: %v", err)
	}

	sessions := store.NewSessionStore(db)
	return NewAuthenticator(sessions, members, testSecret), sessions, user.ID, hh.ID
}

func echoAuth(t *testing.T, captured *auth.AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Error("expected auth context")
		}
		*captured = ac
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthSessionCookie(t *testing.T) {
	a, sessions, userID, hhID := setupAuthTest(t)

	sess, err := sessions.Create(userID, hhID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got auth.AuthContext
	handler := a.RequireAuth(echoAuth(t, &got))

	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID != userID || got.HouseholdID != hhID {
		t.Errorf("auth context = %+v", got)
	}
	if got.Role != model.RoleParent || got.MemberID == 0 {
		t.Errorf("member not resolved: %+v", got)
	}
}

func TestRequireAuthBearerToken(t *testing.T) {
	a, _, userID, hhID := setupAuthTest(t)

	token, err := auth.GenerateToken(testSecret, userID, hhID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var got auth.AuthContext
	handler := a.RequireAuth(echoAuth(t, &got))

	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.UserID != userID || got.HouseholdID != hhID {
		t.Errorf("auth context = %+v", got)
	}
}

func TestRequireAuthRejectsMissingCredentials(t *testing.T) {
	a, _, _, _ := setupAuthTest(t)

	handler := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/api/chores", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthRejectsBadToken(t *testing.T) {
	a, _, _, _ := setupAuthTest(t)

	handler := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/api/chores", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireParent(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	handler := RequireParent(inner)

	// Child context is rejected.
	req := httptest.NewRequest("POST", "/api/rewards", nil)
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{Role: model.RoleChild})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusForbidden || called {
		t.Fatalf("status = %d, called = %v; want 403 and not called", rec.Code, called)
	}

	// Parent context passes.
	ctx = auth.WithAuth(req.Context(), auth.AuthContext{Role: model.RoleParent})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want 200 and called", rec.Code, called)
	}
}

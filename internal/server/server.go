package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/parentpal/parentpal/internal/config"
	"github.com/parentpal/parentpal/internal/email"
	"github.com/parentpal/parentpal/internal/handler"
	"github.com/parentpal/parentpal/internal/middleware"
	"github.com/parentpal/parentpal/internal/push"
	"github.com/parentpal/parentpal/internal/storage"
	"github.com/parentpal/parentpal/internal/store"
	ws "github.com/parentpal/parentpal/internal/websocket"
)

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH        *handler.AuthHandler
	householdH   *handler.HouseholdHandler
	memberH      *handler.FamilyMemberHandler
	choreH       *handler.ChoreHandler
	rewardH      *handler.RewardHandler
	pointsH      *handler.PointsHandler
	messageH     *handler.MessageHandler
	achievementH *handler.AchievementHandler
	reportH      *handler.ReportHandler
	pushH        *handler.PushHandler

	authenticator *middleware.Authenticator
	rateLimiter   *middleware.RateLimiter

	sessionStore      *store.SessionStore
	verificationStore *store.VerificationStore
	pushScheduler     *push.Scheduler

	logger *slog.Logger
}

func New(db *sql.DB, cfg config.Config, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	verificationStore := store.NewVerificationStore(db)
	memberStore := store.NewFamilyMemberStore(db)
	choreStore := store.NewChoreStore(db)
	rewardStore := store.NewRewardStore(db)
	pointsStore := store.NewPointsStore(db)
	messageStore := store.NewMessageStore(db)
	achievementStore := store.NewAchievementStore(db)
	reportStore := store.NewReportStore(db)
	pushStore := store.NewPushStore(db)

	objects := storage.New(cfg.Storage)
	jwtSecret := []byte(cfg.JWTSecret)

	pushLogger := logger.With("component", "push")
	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	notifier := push.NewNotifier(pushSvc, pushStore, memberStore, pushLogger)
	pushSched := push.NewScheduler(pushSvc, pushStore, choreStore, memberStore, pushLogger)

	return &Server{
		db:  db,
		hub: hub,

		authH:        handler.NewAuthHandler(userStore, householdStore, sessionStore, memberStore, verificationStore, emailClient, jwtSecret, cfg.SecureCookies, logger),
		householdH:   handler.NewHouseholdHandler(householdStore, memberStore, sessionStore, jwtSecret, logger),
		memberH:      handler.NewFamilyMemberHandler(memberStore, householdStore, verificationStore, emailClient, objects, hub, logger),
		choreH:       handler.NewChoreHandler(choreStore, memberStore, achievementStore, messageStore, objects, hub, notifier, logger),
		rewardH:      handler.NewRewardHandler(rewardStore, memberStore, hub, notifier, logger),
		pointsH:      handler.NewPointsHandler(pointsStore, memberStore, hub, logger),
		messageH:     handler.NewMessageHandler(messageStore, memberStore, hub, notifier, logger),
		achievementH: handler.NewAchievementHandler(achievementStore, memberStore, messageStore, hub, logger),
		reportH:      handler.NewReportHandler(reportStore, logger),
		pushH:        handler.NewPushHandler(pushStore, pushSvc, logger),

		authenticator: middleware.NewAuthenticator(sessionStore, memberStore, jwtSecret),
		rateLimiter:   middleware.NewRateLimiter(),

		sessionStore:      sessionStore,
		verificationStore: verificationStore,
		pushScheduler:     pushSched,

		logger: logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// VerificationStore returns the verification store for cleanup tasks.
func (s *Server) VerificationStore() *store.VerificationStore {
	return s.verificationStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the due-chore reminder scheduler.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/verify", s.rateLimited(s.authH.Verify))

	// Everything else requires auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/", s.authenticator.RequireAuth(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// parent wraps a handler so only parent members can reach it.
func parent(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.RequireParent(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Household
	mux.HandleFunc("GET /api/household", s.householdH.Get)
	mux.HandleFunc("PUT /api/household", parent(s.householdH.Update))
	mux.HandleFunc("GET /api/households", s.householdH.ListMine)
	mux.HandleFunc("POST /api/households/switch", s.householdH.Switch)

	// Family members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", parent(s.memberH.Create))
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.HandleFunc("PUT /api/members/{id}", parent(s.memberH.Update))
	mux.HandleFunc("DELETE /api/members/{id}", parent(s.memberH.Delete))
	mux.HandleFunc("POST /api/members/{id}/status", parent(s.memberH.UpdateStatus))
	mux.HandleFunc("POST /api/members/{id}/invite", parent(s.memberH.Invite))
	mux.HandleFunc("POST /api/members/{id}/avatar", s.memberH.UploadAvatar)
	mux.HandleFunc("POST /api/members/{id}/pin", s.memberH.SetPIN)
	mux.HandleFunc("POST /api/members/{id}/pin/verify", s.memberH.VerifyPIN)

	// Points
	mux.HandleFunc("GET /api/members/{id}/points", s.pointsH.Balance)
	mux.HandleFunc("GET /api/members/{id}/points/history", s.pointsH.History)
	mux.HandleFunc("GET /api/points/balances", s.pointsH.Balances)
	mux.HandleFunc("POST /api/points/adjust", parent(s.pointsH.Adjust))

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", parent(s.choreH.Create))
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", parent(s.choreH.Update))
	mux.HandleFunc("DELETE /api/chores/{id}", parent(s.choreH.Delete))
	mux.HandleFunc("POST /api/chores/{id}/status", s.choreH.UpdateStatus)
	mux.HandleFunc("GET /api/chores/{id}/images", s.choreH.ListImages)
	mux.HandleFunc("POST /api/chores/{id}/images", s.choreH.UploadImage)
	mux.HandleFunc("GET /api/chores/{id}/messages", s.choreH.ListMessages)
	mux.HandleFunc("POST /api/chores/{id}/messages", s.choreH.CreateMessage)

	// Rewards and redemptions
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards", parent(s.rewardH.Create))
	mux.HandleFunc("GET /api/rewards/{id}", s.rewardH.Get)
	mux.HandleFunc("PUT /api/rewards/{id}", parent(s.rewardH.Update))
	mux.HandleFunc("DELETE /api/rewards/{id}", parent(s.rewardH.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.rewardH.Redeem)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.ListRedemptions)
	mux.HandleFunc("POST /api/redemptions/{id}/approve", parent(s.rewardH.Approve))
	mux.HandleFunc("POST /api/redemptions/{id}/reject", parent(s.rewardH.Reject))

	// Family chat
	mux.HandleFunc("GET /api/messages", s.messageH.List)
	mux.HandleFunc("POST /api/messages", s.messageH.Create)

	// Achievements
	mux.HandleFunc("GET /api/members/{id}/achievements", s.achievementH.ListByMember)
	mux.HandleFunc("POST /api/achievements", parent(s.achievementH.Create))
	mux.HandleFunc("PUT /api/achievements/{id}/progress", parent(s.achievementH.UpdateProgress))
	mux.HandleFunc("DELETE /api/achievements/{id}", parent(s.achievementH.Delete))
	mux.HandleFunc("POST /api/achievements/{id}/share", s.achievementH.Share)

	// Reports
	mux.HandleFunc("GET /api/reports/leaderboard", s.reportH.Leaderboard)
	mux.HandleFunc("GET /api/reports/chores", s.reportH.ChoreStats)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger))
}

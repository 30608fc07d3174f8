package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/parentpal/parentpal/internal/auth"
	"github.com/parentpal/parentpal/internal/model"
	"github.com/parentpal/parentpal/internal/store"
)

type ReportHandler struct {
	reports *store.ReportStore
	logger  *slog.Logger
}

func NewReportHandler(rs *store.ReportStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: rs,
		logger:  logger.With("component", "reports"),
	}
}

// Leaderboard ranks household members by points earned in the requested
// period: week, month or all (the default).
func (h *ReportHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	now := time.Now().UTC()
	switch period := r.URL.Query().Get("period"); period {
	case "", "all":
	case "week":
		since = startOfWeek(now)
	case "month":
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		writeError(w, http.StatusBadRequest, "period must be week, month or all")
		return
	}

	entries, err := h.reports.Leaderboard(auth.HouseholdID(r.Context()), since)
	if err != nil {
		h.logger.Error("leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ReportHandler) ChoreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.ChoreStats(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("chore stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build chore statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

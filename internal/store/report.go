package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/parentpal/parentpal/internal/model"
)

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

// Leaderboard ranks a household's active members by ledger activity since
// the given time. A zero since means all time. Ties share the ordering of
// the underlying query; ranks are still assigned 1..n.
func (s *ReportStore) Leaderboard(householdID int64, since time.Time) ([]model.LeaderboardEntry, error) {
	query := `SELECT fm.id, fm.name, COALESCE(fm.avatar_url, ''),
	                 COALESCE(SUM(CASE WHEN ph.delta > 0 THEN ph.delta ELSE 0 END), 0),
	                 COALESCE(SUM(CASE WHEN ph.delta < 0 THEN -ph.delta ELSE 0 END), 0),
	                 COALESCE(SUM(ph.delta), 0),
	                 COUNT(CASE WHEN ph.chore_id IS NOT NULL AND ph.delta > 0 THEN 1 END),
	                 fm.streak_count
	          FROM family_members fm
	          LEFT JOIN points_history ph ON ph.member_id = fm.id`
	args := []any{}
	if !since.IsZero() {
		query += ` AND ph.created_at >= ?`
		args = append(args, since.UTC())
	}
	query += ` WHERE fm.household_id = ? AND fm.status = 'active'
	           GROUP BY fm.id, fm.name, fm.avatar_url, fm.streak_count
	           ORDER BY 4 DESC, fm.name ASC`
	args = append(args, householdID)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.MemberID, &e.MemberName, &e.AvatarURL,
			&e.PointsEarned, &e.PointsSpent, &e.Balance, &e.ChoresCompleted, &e.StreakDays); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ChoreStats aggregates the household's chore pipeline plus per-member
// assignment and completion counts.
func (s *ReportStore) ChoreStats(householdID int64) (*model.ChoreStats, error) {
	var stats model.ChoreStats
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'completed' THEN 1 END),
		        COUNT(CASE WHEN status = 'pending' THEN 1 END),
		        COUNT(CASE WHEN status = 'in_progress' THEN 1 END),
		        COUNT(CASE WHEN status = 'awaiting_verification' THEN 1 END)
		 FROM chores WHERE household_id = ?`,
		householdID,
	).Scan(&stats.TotalChores, &stats.Completed, &stats.Pending, &stats.InProgress, &stats.AwaitingVerify)
	if err != nil {
		return nil, fmt.Errorf("query chore totals: %w", err)
	}
	if stats.TotalChores > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.TotalChores)
	}

	rows, err := s.db.Query(
		`SELECT fm.id, fm.name,
		        COUNT(c.id),
		        COUNT(CASE WHEN c.status = 'completed' THEN 1 END),
		        COALESCE((SELECT SUM(ph.delta) FROM points_history ph
		                  WHERE ph.member_id = fm.id AND ph.delta > 0), 0)
		 FROM family_members fm
		 LEFT JOIN chores c ON c.assigned_to = fm.id
		 WHERE fm.household_id = ? AND fm.status = 'active'
		 GROUP BY fm.id, fm.name
		 ORDER BY fm.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("query member stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.MemberChoreStats
		if err := rows.Scan(&m.MemberID, &m.MemberName, &m.Assigned, &m.Completed, &m.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan member stats: %w", err)
		}
		if m.Assigned > 0 {
			m.CompletionRate = float64(m.Completed) / float64(m.Assigned)
		}
		stats.ByMember = append(stats.ByMember, m)
	}
	return &stats, rows.Err()
}

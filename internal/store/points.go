package store

import (
	"database/sql"
	"fmt"

	"github.com/parentpal/parentpal/internal/model"
)

type PointsStore struct {
	db *sql.DB
}

func NewPointsStore(db *sql.DB) *PointsStore {
	return &PointsStore{db: db}
}

func scanPointsEntry(scanner interface{ Scan(...any) error }) (*model.PointsEntry, error) {
	var e model.PointsEntry
	var choreID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.MemberID, &choreID, &e.Delta, &e.Reason, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if choreID.Valid {
		e.ChoreID = &choreID.Int64
	}
	return &e, nil
}

const pointsCols = `id, member_id, chore_id, delta, reason, created_at`

// Add appends a ledger entry. Delta may be negative for adjustments, but the
// resulting balance may not go below zero.
func (s *PointsStore) Add(memberID int64, choreID *int64, delta int, reason string) (*model.PointsEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if delta < 0 {
		var balance int
		if err := tx.QueryRow(
			`SELECT COALESCE(SUM(delta), 0) FROM points_history WHERE member_id = ?`,
			memberID,
		).Scan(&balance); err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		if balance+delta < 0 {
			return nil, model.ErrInsufficientPoints
		}
	}

	result, err := tx.Exec(
		`INSERT INTO points_history (member_id, chore_id, delta, reason) VALUES (?, ?, ?, ?)`,
		memberID, nullID(choreID), delta, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("insert points entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit points entry: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pointsCols+` FROM points_history WHERE id = ?`, id)
	return scanPointsEntry(row)
}

// Balance computes a member's current balance from the ledger.
func (s *PointsStore) Balance(memberID int64) (int, error) {
	var balance int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(delta), 0) FROM points_history WHERE member_id = ?`,
		memberID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// History returns a member's ledger entries, newest first.
func (s *PointsStore) History(memberID int64, limit int) ([]model.PointsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+pointsCols+` FROM points_history WHERE member_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list points history: %w", err)
	}
	defer rows.Close()

	var entries []model.PointsEntry
	for rows.Next() {
		e, err := scanPointsEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan points entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Balances returns per-member totals for a household.
func (s *PointsStore) Balances(householdID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT fm.id, fm.name,
		        COALESCE(SUM(CASE WHEN ph.delta > 0 THEN ph.delta ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN ph.delta < 0 THEN -ph.delta ELSE 0 END), 0),
		        COALESCE(SUM(ph.delta), 0)
		 FROM family_members fm
		 LEFT JOIN points_history ph ON ph.member_id = fm.id
		 WHERE fm.household_id = ? AND fm.status = 'active'
		 GROUP BY fm.id, fm.name
		 ORDER BY fm.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.MemberID, &b.MemberName, &b.TotalEarned, &b.TotalSpent, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

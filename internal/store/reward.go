package store

import (
	"database/sql"
	"fmt"

	"github.com/parentpal/parentpal/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// RewardParams carries the mutable attributes of a reward.
type RewardParams struct {
	Title       string
	Description string
	PointsCost  int
	Category    string
	Active      bool
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(
		&r.ID, &r.HouseholdID, &r.Title, &r.Description, &r.PointsCost,
		&r.Category, &active, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

const rewardCols = `id, household_id, title, description, points_cost, category, active, created_at, updated_at`

func (s *RewardStore) Create(householdID int64, p RewardParams) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (household_id, title, description, points_cost, category, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, p.Title, p.Description, p.PointsCost, p.Category, boolToInt(p.Active),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *RewardStore) GetByID(householdID, id int64) (*model.Reward, error) {
	row := s.db.QueryRow(
		`SELECT `+rewardCols+` FROM rewards WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns household rewards. When activeOnly is set, disabled rewards
// are skipped.
func (s *RewardStore) List(householdID int64, activeOnly bool) ([]model.Reward, error) {
	query := `SELECT ` + rewardCols + ` FROM rewards WHERE household_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY points_cost ASC, title ASC`

	rows, err := s.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(householdID, id int64, p RewardParams) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, points_cost = ?, category = ?, active = ?
		 WHERE household_id = ? AND id = ?`,
		p.Title, p.Description, p.PointsCost, p.Category, boolToInt(p.Active),
		householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *RewardStore) Delete(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.RewardRedemption, error) {
	var r model.RewardRedemption
	var decidedBy sql.NullInt64
	var decidedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.RewardID, &r.MemberID, &r.PointsSpent, &r.Status, &decidedBy, &decidedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	if decidedBy.Valid {
		r.DecidedBy = &decidedBy.Int64
	}
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, member_id, points_spent, status, decided_by, decided_at, created_at`

// RequestRedemption creates a pending redemption after checking that the
// member's ledger balance covers the cost. The check and the insert run in
// one transaction so concurrent requests cannot both pass against the same
// balance.
func (s *RewardStore) RequestRedemption(reward *model.Reward, memberID int64) (*model.RewardRedemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var balance, held int
	if err := tx.QueryRow(
		`SELECT COALESCE(SUM(delta), 0) FROM points_history WHERE member_id = ?`,
		memberID,
	).Scan(&balance); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if err := tx.QueryRow(
		`SELECT COALESCE(SUM(points_spent), 0) FROM reward_redemptions
		 WHERE member_id = ? AND status = 'pending'`,
		memberID,
	).Scan(&held); err != nil {
		return nil, fmt.Errorf("read pending holds: %w", err)
	}
	if balance-held < reward.PointsCost {
		return nil, model.ErrInsufficientPoints
	}

	result, err := tx.Exec(
		`INSERT INTO reward_redemptions (reward_id, member_id, points_spent, status)
		 VALUES (?, ?, ?, 'pending')`,
		reward.ID, memberID, reward.PointsCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	return s.GetRedemption(id)
}

// ApproveRedemption flips a pending redemption to approved and deducts the
// points in the same transaction. The balance is re-checked at approval time
// in case other spends landed since the request.
func (s *RewardStore) ApproveRedemption(id, decidedBy int64) (*model.RewardRedemption, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ? AND status = 'pending'`,
		id,
	)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}

	var balance int
	if err := tx.QueryRow(
		`SELECT COALESCE(SUM(delta), 0) FROM points_history WHERE member_id = ?`,
		r.MemberID,
	).Scan(&balance); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if balance < r.PointsSpent {
		return nil, model.ErrInsufficientPoints
	}

	if _, err := tx.Exec(
		`UPDATE reward_redemptions SET status = 'approved', decided_by = ?, decided_at = datetime('now')
		 WHERE id = ?`,
		decidedBy, id,
	); err != nil {
		return nil, fmt.Errorf("approve redemption: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO points_history (member_id, chore_id, delta, reason) VALUES (?, NULL, ?, ?)`,
		r.MemberID, -r.PointsSpent, "reward redemption",
	); err != nil {
		return nil, fmt.Errorf("insert spend entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return s.GetRedemption(id)
}

// RejectRedemption flips a pending redemption to rejected. No points move.
func (s *RewardStore) RejectRedemption(id, decidedBy int64) (*model.RewardRedemption, error) {
	result, err := s.db.Exec(
		`UPDATE reward_redemptions SET status = 'rejected', decided_by = ?, decided_at = datetime('now')
		 WHERE id = ? AND status = 'pending'`,
		decidedBy, id,
	)
	if err != nil {
		return nil, fmt.Errorf("reject redemption: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetRedemption(id)
}

func (s *RewardStore) GetRedemption(id int64) (*model.RewardRedemption, error) {
	row := s.db.QueryRow(`SELECT `+redemptionCols+` FROM reward_redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// ListRedemptions returns a household's redemptions, optionally filtered by
// status, newest first.
func (s *RewardStore) ListRedemptions(householdID int64, status string) ([]model.RewardRedemption, error) {
	query := `SELECT rr.id, rr.reward_id, rr.member_id, rr.points_spent, rr.status,
	                 rr.decided_by, rr.decided_at, rr.created_at
	          FROM reward_redemptions rr
	          JOIN rewards r ON r.id = rr.reward_id
	          WHERE r.household_id = ?`
	args := []any{householdID}
	if status != "" {
		query += ` AND rr.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY rr.created_at DESC, rr.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.RewardRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

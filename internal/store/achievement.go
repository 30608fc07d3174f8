package store

import (
	"database/sql"
	"fmt"

	"github.com/parentpal/parentpal/internal/model"
)

type AchievementStore struct {
	db *sql.DB
}

func NewAchievementStore(db *sql.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

func scanAchievement(scanner interface{ Scan(...any) error }) (*model.Achievement, error) {
	var a model.Achievement
	var secret int

	err := scanner.Scan(&a.ID, &a.MemberID, &a.Title, &a.Description, &a.Category,
		&a.Progress, &a.Target, &secret, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Secret = secret != 0
	return &a, nil
}

const achievementCols = `id, member_id, title, description, category, progress, target, secret, created_at`

func (s *AchievementStore) Create(memberID int64, title, description, category string, progress, target int, secret bool) (*model.Achievement, error) {
	result, err := s.db.Exec(
		`INSERT INTO achievements (member_id, title, description, category, progress, target, secret)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		memberID, title, description, category, progress, target, boolToInt(secret),
	)
	if err != nil {
		return nil, fmt.Errorf("insert achievement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AchievementStore) GetByID(id int64) (*model.Achievement, error) {
	row := s.db.QueryRow(`SELECT `+achievementCols+` FROM achievements WHERE id = ?`, id)
	a, err := scanAchievement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement: %w", err)
	}
	return a, nil
}

// GetByTitle looks up a member's achievement by its title. Titles act as the
// natural key for milestone awards, so the same milestone is never granted
// twice.
func (s *AchievementStore) GetByTitle(memberID int64, title string) (*model.Achievement, error) {
	row := s.db.QueryRow(
		`SELECT `+achievementCols+` FROM achievements WHERE member_id = ? AND title = ?`,
		memberID, title,
	)
	a, err := scanAchievement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement by title: %w", err)
	}
	return a, nil
}

func (s *AchievementStore) ListByMember(memberID int64) ([]model.Achievement, error) {
	rows, err := s.db.Query(
		`SELECT `+achievementCols+` FROM achievements WHERE member_id = ? ORDER BY created_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

func (s *AchievementStore) UpdateProgress(id int64, progress int) (*model.Achievement, error) {
	_, err := s.db.Exec(`UPDATE achievements SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return nil, fmt.Errorf("update achievement progress: %w", err)
	}
	return s.GetByID(id)
}

func (s *AchievementStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM achievements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete achievement: %w", err)
	}
	return nil
}

// CompletedChoreCount returns how many chores a member has completed,
// counted from granted ledger entries tied to chores.
func (s *AchievementStore) CompletedChoreCount(memberID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM points_history WHERE member_id = ? AND chore_id IS NOT NULL AND delta > 0`,
		memberID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed chores: %w", err)
	}
	return count, nil
}

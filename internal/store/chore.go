package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/parentpal/parentpal/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// ChoreParams carries the mutable attributes of a chore.
type ChoreParams struct {
	Title                string
	Description          string
	Points               int
	AssignedTo           *int64
	DueDate              *time.Time
	Recurrence           string
	Priority             string
	VerificationRequired bool
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo, verifiedBy, createdBy sql.NullInt64
	var dueDate, verifiedAt sql.NullTime
	var verificationRequired int

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Title, &c.Description, &c.Points, &c.Status,
		&assignedTo, &dueDate, &c.Recurrence, &c.Priority,
		&verificationRequired, &verifiedAt, &verifiedBy, &createdBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	if dueDate.Valid {
		c.DueDate = &dueDate.Time
	}
	if verifiedAt.Valid {
		c.VerifiedAt = &verifiedAt.Time
	}
	if verifiedBy.Valid {
		c.VerifiedBy = &verifiedBy.Int64
	}
	if createdBy.Valid {
		c.CreatedBy = &createdBy.Int64
	}
	c.VerificationRequired = verificationRequired != 0
	return &c, nil
}

const choreCols = `id, household_id, title, description, points, status,
	assigned_to, due_date, recurrence, priority,
	verification_required, verified_at, verified_by, created_by,
	created_at, updated_at`

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Create inserts a chore with status pending.
func (s *ChoreStore) Create(householdID int64, createdBy *int64, p ChoreParams) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores
		 (household_id, title, description, points, status, assigned_to, due_date,
		  recurrence, priority, verification_required, created_by)
		 VALUES (?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?, ?)`,
		householdID, p.Title, p.Description, p.Points, nullID(p.AssignedTo), nullTime(p.DueDate),
		p.Recurrence, p.Priority, boolToInt(p.VerificationRequired), nullID(createdBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *ChoreStore) GetByID(householdID, id int64) (*model.Chore, error) {
	row := s.db.QueryRow(
		`SELECT `+choreCols+` FROM chores WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// List returns household chores, optionally filtered by status and/or
// assignee. Zero values mean no filter.
func (s *ChoreStore) List(householdID int64, status string, assignedTo int64) ([]model.Chore, error) {
	query := `SELECT ` + choreCols + ` FROM chores WHERE household_id = ?`
	args := []any{householdID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if assignedTo != 0 {
		query += ` AND assigned_to = ?`
		args = append(args, assignedTo)
	}
	query += ` ORDER BY due_date IS NULL, due_date ASC, title ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// DueBefore returns open chores with a due date before the cutoff, for the
// reminder scheduler.
func (s *ChoreStore) DueBefore(householdID int64, cutoff time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE household_id = ? AND status != 'completed'
		   AND due_date IS NOT NULL AND due_date < ?
		 ORDER BY due_date ASC`,
		householdID, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(householdID, id int64, p ChoreParams) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, description = ?, points = ?, assigned_to = ?,
		 due_date = ?, recurrence = ?, priority = ?, verification_required = ?
		 WHERE household_id = ? AND id = ?`,
		p.Title, p.Description, p.Points, nullID(p.AssignedTo),
		nullTime(p.DueDate), p.Recurrence, p.Priority, boolToInt(p.VerificationRequired),
		householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(householdID, id)
}

// UpdateStatus overwrites the status only. Transition validation happens in
// the chore package before this is called.
func (s *ChoreStore) UpdateStatus(householdID, id int64, status string) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET status = ? WHERE household_id = ? AND id = ?`,
		status, householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore status: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *ChoreStore) Delete(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// Completion finalizes a completed chore in one transaction. The status
// lands in completed (or respawns to pending with the next due date when
// recurring), a points ledger entry is appended for the member, and the
// member's streak is bumped.
type Completion struct {
	ChoreID     int64
	HouseholdID int64
	MemberID    int64
	Points      int
	VerifiedBy  *int64
	NextDue     *time.Time
	Reason      string
}

func (s *ChoreStore) RecordCompletion(c Completion) (*model.Chore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if c.VerifiedBy != nil {
		_, err = tx.Exec(
			`UPDATE chores SET status = 'completed', verified_at = datetime('now'), verified_by = ?
			 WHERE household_id = ? AND id = ?`,
			*c.VerifiedBy, c.HouseholdID, c.ChoreID,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE chores SET status = 'completed' WHERE household_id = ? AND id = ?`,
			c.HouseholdID, c.ChoreID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("complete chore: %w", err)
	}

	if c.Points > 0 {
		_, err = tx.Exec(
			`INSERT INTO points_history (member_id, chore_id, delta, reason) VALUES (?, ?, ?, ?)`,
			c.MemberID, c.ChoreID, c.Points, c.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("insert points entry: %w", err)
		}
	}

	if _, err := tx.Exec(
		`UPDATE family_members SET streak_count = streak_count + 1 WHERE id = ?`,
		c.MemberID,
	); err != nil {
		return nil, fmt.Errorf("bump streak: %w", err)
	}

	// Recurring chores start a fresh cycle instead of staying terminal.
	if c.NextDue != nil {
		if _, err := tx.Exec(
			`UPDATE chores SET status = 'pending', due_date = ?, verified_at = NULL, verified_by = NULL
			 WHERE household_id = ? AND id = ?`,
			c.NextDue.UTC(), c.HouseholdID, c.ChoreID,
		); err != nil {
			return nil, fmt.Errorf("respawn chore: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return s.GetByID(c.HouseholdID, c.ChoreID)
}

// --- Image methods ---

func scanImage(scanner interface{ Scan(...any) error }) (*model.ChoreImage, error) {
	var img model.ChoreImage
	var uploadedBy sql.NullInt64

	err := scanner.Scan(&img.ID, &img.ChoreID, &img.URL, &img.ObjectKey, &img.Type, &uploadedBy, &img.CreatedAt)
	if err != nil {
		return nil, err
	}

	if uploadedBy.Valid {
		img.UploadedBy = &uploadedBy.Int64
	}
	return &img, nil
}

const imageCols = `id, chore_id, url, object_key, type, uploaded_by, created_at`

func (s *ChoreStore) AddImage(choreID int64, url, objectKey, imgType string, uploadedBy *int64) (*model.ChoreImage, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_images (chore_id, url, object_key, type, uploaded_by) VALUES (?, ?, ?, ?, ?)`,
		choreID, url, objectKey, imgType, nullID(uploadedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore image: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+imageCols+` FROM chore_images WHERE id = ?`, id)
	return scanImage(row)
}

func (s *ChoreStore) ListImages(choreID int64) ([]model.ChoreImage, error) {
	rows, err := s.db.Query(
		`SELECT `+imageCols+` FROM chore_images WHERE chore_id = ? ORDER BY created_at ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chore images: %w", err)
	}
	defer rows.Close()

	var images []model.ChoreImage
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore image: %w", err)
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

// ImageKeys returns the object-store keys for a chore's images, for cleanup
// before the rows cascade away with the chore.
func (s *ChoreStore) ImageKeys(choreID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT object_key FROM chore_images WHERE chore_id = ? AND object_key != ''`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list image keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan image key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

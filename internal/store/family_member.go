package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/parentpal/parentpal/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

// MemberParams carries the mutable attributes of a family member. Role is
// deliberately absent from update paths; it is fixed at creation.
type MemberParams struct {
	Name         string
	Email        string
	Capabilities model.Capabilities
	Age          *int
	Difficulty   string
	WeeklyCap    *int
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var userID sql.NullInt64
	var email sql.NullString
	var age, weeklyCap sql.NullInt64
	var manageRewards, assignChores, approveChores, managePoints int

	err := scanner.Scan(
		&m.ID, &m.HouseholdID, &userID, &m.Name, &email, &m.Role, &m.Status,
		&manageRewards, &assignChores, &approveChores, &managePoints,
		&age, &m.Difficulty, &weeklyCap, &m.AvatarURL, &m.StreakCount,
		&m.HasPIN, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		m.UserID = &userID.Int64
	}
	if email.Valid {
		m.Email = email.String
	}
	if age.Valid {
		v := int(age.Int64)
		m.Age = &v
	}
	if weeklyCap.Valid {
		v := int(weeklyCap.Int64)
		m.WeeklyCap = &v
	}
	m.Capabilities = model.Capabilities{
		ManageRewards: manageRewards != 0,
		AssignChores:  assignChores != 0,
		ApproveChores: approveChores != 0,
		ManagePoints:  managePoints != 0,
	}
	return &m, nil
}

const memberCols = `id, household_id, user_id, name, email, role, status,
	manage_rewards, assign_chores, approve_chores, manage_points,
	age, preferred_difficulty, weekly_chore_cap, avatar_url, streak_count,
	pin IS NOT NULL, created_at, updated_at`

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableEmail stores the empty string as NULL so the per-household unique
// index only applies to members that actually have an email.
func nullableEmail(email string) sql.NullString {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: email, Valid: true}
}

func isDuplicateEmail(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: family_members.household_id, family_members.email")
}

// Create adds a member to the household. Only parent-role members keep
// their capability flags; anything set on a child is normalized away.
// Returns model.ErrDuplicateEmail if the email is already present in the
// household.
func (s *FamilyMemberStore) Create(householdID int64, userID *int64, role, status string, p MemberParams) (*model.FamilyMember, error) {
	email := nullableEmail(p.Email)
	if email.Valid {
		exists, err := s.emailExists(householdID, email.String, 0)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrDuplicateEmail
		}
	}

	caps := p.Capabilities
	if role != model.RoleParent {
		caps = model.Capabilities{}
	}

	var uID sql.NullInt64
	if userID != nil {
		uID = sql.NullInt64{Int64: *userID, Valid: true}
	}
	var age, weeklyCap sql.NullInt64
	if p.Age != nil {
		age = sql.NullInt64{Int64: int64(*p.Age), Valid: true}
	}
	if p.WeeklyCap != nil {
		weeklyCap = sql.NullInt64{Int64: int64(*p.WeeklyCap), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO family_members
		 (household_id, user_id, name, email, role, status,
		  manage_rewards, assign_chores, approve_chores, manage_points,
		  age, preferred_difficulty, weekly_chore_cap)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		householdID, uID, p.Name, email, role, status,
		boolToInt(caps.ManageRewards), boolToInt(caps.AssignChores),
		boolToInt(caps.ApproveChores), boolToInt(caps.ManagePoints),
		age, p.Difficulty, weeklyCap,
	)
	if isDuplicateEmail(err) {
		// The pre-check lost a race; the unique index is the authority.
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *FamilyMemberStore) emailExists(householdID int64, email string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM family_members WHERE household_id = ? AND email = ? AND id != ?`,
		householdID, email, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return count > 0, nil
}

func (s *FamilyMemberStore) GetByID(householdID, id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM family_members WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) List(householdID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM family_members WHERE household_id = ? ORDER BY role ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ResolveForUser maps an authenticated user to their member profile in a
// household: the parent profile linked to the user first, else the child
// profile. Returns nil when the user has no profile in the household.
func (s *FamilyMemberStore) ResolveForUser(householdID, userID int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(
		`SELECT `+memberCols+` FROM family_members
		 WHERE household_id = ? AND user_id = ?
		 ORDER BY CASE role WHEN 'parent' THEN 0 ELSE 1 END
		 LIMIT 1`,
		householdID, userID,
	)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve member for user: %w", err)
	}
	return m, nil
}

// LinkUserByEmail attaches an authenticated user to the member profile that
// carries their email, completing an invite. Returns nil when no profile in
// the household has that email.
func (s *FamilyMemberStore) LinkUserByEmail(householdID int64, email string, userID int64) (*model.FamilyMember, error) {
	addr := nullableEmail(email)
	if !addr.Valid {
		return nil, nil
	}

	var memberID int64
	err := s.db.QueryRow(
		`SELECT id FROM family_members WHERE household_id = ? AND email = ?`,
		householdID, addr.String,
	).Scan(&memberID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member by email: %w", err)
	}

	if _, err := s.db.Exec(
		`UPDATE family_members SET user_id = ?, status = 'active' WHERE id = ?`,
		userID, memberID,
	); err != nil {
		return nil, fmt.Errorf("link user to member: %w", err)
	}
	return s.GetByID(householdID, memberID)
}

// Update rewrites the member's mutable attributes. Role and household are
// untouched. Returns model.ErrDuplicateEmail when the new email collides
// within the household.
func (s *FamilyMemberStore) Update(householdID, id int64, p MemberParams) (*model.FamilyMember, error) {
	existing, err := s.GetByID(householdID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, model.ErrNotFound
	}

	email := nullableEmail(p.Email)
	if email.Valid {
		exists, err := s.emailExists(householdID, email.String, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrDuplicateEmail
		}
	}

	caps := p.Capabilities
	if existing.Role != model.RoleParent {
		caps = model.Capabilities{}
	}

	var age, weeklyCap sql.NullInt64
	if p.Age != nil {
		age = sql.NullInt64{Int64: int64(*p.Age), Valid: true}
	}
	if p.WeeklyCap != nil {
		weeklyCap = sql.NullInt64{Int64: int64(*p.WeeklyCap), Valid: true}
	}

	_, err = s.db.Exec(
		`UPDATE family_members SET name = ?, email = ?,
		 manage_rewards = ?, assign_chores = ?, approve_chores = ?, manage_points = ?,
		 age = ?, preferred_difficulty = ?, weekly_chore_cap = ?
		 WHERE household_id = ? AND id = ?`,
		p.Name, email,
		boolToInt(caps.ManageRewards), boolToInt(caps.AssignChores),
		boolToInt(caps.ApproveChores), boolToInt(caps.ManagePoints),
		age, p.Difficulty, weeklyCap,
		householdID, id,
	)
	if isDuplicateEmail(err) {
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *FamilyMemberStore) UpdateStatus(householdID, id int64, status string) (*model.FamilyMember, error) {
	_, err := s.db.Exec(
		`UPDATE family_members SET status = ? WHERE household_id = ? AND id = ?`,
		status, householdID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member status: %w", err)
	}
	return s.GetByID(householdID, id)
}

func (s *FamilyMemberStore) Delete(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM family_members WHERE household_id = ? AND id = ?`, householdID, id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}

// SetAvatar records the avatar's public URL and object-store key. The
// previous key is returned so the caller can delete the old object.
func (s *FamilyMemberStore) SetAvatar(householdID, id int64, url, objectKey string) (string, error) {
	var prevKey string
	err := s.db.QueryRow(
		`SELECT avatar_key FROM family_members WHERE household_id = ? AND id = ?`,
		householdID, id,
	).Scan(&prevKey)
	if err == sql.ErrNoRows {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get avatar key: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE family_members SET avatar_url = ?, avatar_key = ? WHERE household_id = ? AND id = ?`,
		url, objectKey, householdID, id,
	)
	if err != nil {
		return "", fmt.Errorf("set avatar: %w", err)
	}
	return prevKey, nil
}

// AvatarKey returns the object-store key for a member's avatar, or "" when
// none is set.
func (s *FamilyMemberStore) AvatarKey(householdID, id int64) (string, error) {
	var key string
	err := s.db.QueryRow(
		`SELECT avatar_key FROM family_members WHERE household_id = ? AND id = ?`,
		householdID, id,
	).Scan(&key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get avatar key: %w", err)
	}
	return key, nil
}

func (s *FamilyMemberStore) IncrementStreak(id int64) error {
	_, err := s.db.Exec(`UPDATE family_members SET streak_count = streak_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment streak: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ResetStreak(id int64) error {
	_, err := s.db.Exec(`UPDATE family_members SET streak_count = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// CountOpenAssigned returns the number of open (not completed) chores
// currently assigned to a member that are due within the week starting at
// weekStart. Used to enforce the weekly chore cap.
func (s *FamilyMemberStore) CountOpenAssigned(memberID int64, weekStart time.Time) (int, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores
		 WHERE assigned_to = ? AND status != 'completed'
		 AND (due_date IS NULL OR (due_date >= ? AND due_date < ?))`,
		memberID, weekStart.UTC(), weekEnd.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open assigned chores: %w", err)
	}
	return count, nil
}

func (s *FamilyMemberStore) SetPIN(householdID, id int64, hashedPIN string) error {
	_, err := s.db.Exec(
		`UPDATE family_members SET pin = ? WHERE household_id = ? AND id = ?`,
		hashedPIN, householdID, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) ClearPIN(householdID, id int64) error {
	_, err := s.db.Exec(
		`UPDATE family_members SET pin = NULL WHERE household_id = ? AND id = ?`,
		householdID, id,
	)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *FamilyMemberStore) GetPINHash(householdID, id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(
		`SELECT pin FROM family_members WHERE household_id = ? AND id = ?`,
		householdID, id,
	).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}

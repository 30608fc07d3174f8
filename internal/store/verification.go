package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/parentpal/parentpal/internal/model"
)

const codeTTL = 15 * time.Minute

type VerificationStore struct {
	db *sql.DB
}

func NewVerificationStore(db *sql.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

func scanCode(scanner interface{ Scan(...any) error }) (*model.VerificationCode, error) {
	var vc model.VerificationCode
	var householdID sql.NullInt64
	var usedAt sql.NullTime

	err := scanner.Scan(
		&vc.ID, &vc.Code, &vc.Email, &vc.Purpose, &householdID,
		&vc.ExpiresAt, &usedAt, &vc.Attempts, &vc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if householdID.Valid {
		vc.HouseholdID = &householdID.Int64
	}
	if usedAt.Valid {
		vc.UsedAt = &usedAt.Time
	}
	return &vc, nil
}

const codeCols = `id, code, email, purpose, household_id, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000–999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a fresh sign-in code for the email. Any still-valid
// previous codes for the same address are invalidated first so exactly one
// code can succeed at a time.
func (s *VerificationStore) Create(email, purpose string, householdID *int64) (*model.VerificationCode, error) {
	_, err := s.db.Exec(
		`UPDATE verification_codes SET used_at = datetime('now')
		 WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(codeTTL)

	var hID sql.NullInt64
	if householdID != nil {
		hID = sql.NullInt64{Int64: *householdID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO verification_codes (code, email, purpose, household_id, expires_at) VALUES (?, ?, ?, ?, ?)`,
		code, email, purpose, hID, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert verification code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+codeCols+` FROM verification_codes WHERE id = ?`, id)
	return scanCode(row)
}

// GetLatestByEmail returns the most recent valid (unexpired, unused) code
// for an email, or nil.
func (s *VerificationStore) GetLatestByEmail(email string) (*model.VerificationCode, error) {
	row := s.db.QueryRow(
		`SELECT `+codeCols+` FROM verification_codes
		 WHERE email = ? AND expires_at > datetime('now') AND used_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		email,
	)
	vc, err := scanCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest verification code: %w", err)
	}
	return vc, nil
}

// IncrementAttempts bumps the attempt count and returns the new value.
func (s *VerificationStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(`UPDATE verification_codes SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var attempts int
	err = s.db.QueryRow(`SELECT attempts FROM verification_codes WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *VerificationStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE verification_codes SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark verification code used: %w", err)
	}
	return nil
}

func (s *VerificationStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM verification_codes WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired verification codes: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/parentpal/parentpal/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func scanChatMessage(scanner interface{ Scan(...any) error }) (*model.ChatMessage, error) {
	var m model.ChatMessage
	var receiverID sql.NullInt64

	err := scanner.Scan(&m.ID, &m.HouseholdID, &m.SenderID, &receiverID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	if receiverID.Valid {
		m.ReceiverID = &receiverID.Int64
	}
	return &m, nil
}

const chatCols = `id, household_id, sender_id, receiver_id, content, created_at`

// CreateChat stores a chat message. A nil receiver means the whole household.
func (s *MessageStore) CreateChat(householdID, senderID int64, receiverID *int64, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrEmptyMessage
	}

	result, err := s.db.Exec(
		`INSERT INTO chat_messages (household_id, sender_id, receiver_id, content) VALUES (?, ?, ?, ?)`,
		householdID, senderID, nullID(receiverID), content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+chatCols+` FROM chat_messages WHERE id = ?`, id)
	return scanChatMessage(row)
}

// ListChat returns the messages visible to a member: broadcasts plus direct
// messages they sent or received, newest last.
func (s *MessageStore) ListChat(householdID, memberID int64, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT `+chatCols+` FROM chat_messages
		 WHERE household_id = ?
		   AND (receiver_id IS NULL OR receiver_id = ? OR sender_id = ?)
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		householdID, memberID, memberID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		m, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse so callers get chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanChoreMessage(scanner interface{ Scan(...any) error }) (*model.ChoreMessage, error) {
	var m model.ChoreMessage
	err := scanner.Scan(&m.ID, &m.ChoreID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const choreMsgCols = `id, chore_id, sender_id, content, created_at`

// CreateChoreMessage stores a comment on a chore's thread.
func (s *MessageStore) CreateChoreMessage(choreID, senderID int64, content string) (*model.ChoreMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrEmptyMessage
	}

	result, err := s.db.Exec(
		`INSERT INTO chore_messages (chore_id, sender_id, content) VALUES (?, ?, ?)`,
		choreID, senderID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+choreMsgCols+` FROM chore_messages WHERE id = ?`, id)
	return scanChoreMessage(row)
}

func (s *MessageStore) ListChoreMessages(choreID int64) ([]model.ChoreMessage, error) {
	rows, err := s.db.Query(
		`SELECT `+choreMsgCols+` FROM chore_messages WHERE chore_id = ? ORDER BY created_at ASC, id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chore messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChoreMessage
	for rows.Next() {
		m, err := scanChoreMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

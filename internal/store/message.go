package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// InsertMessage appends a message to its conversation. ID and CreatedAt are
// assigned by the store; CreatedAt never goes below the newest message of
// the same conversation, so reads ordered by created_at match append order.
func (db *DB) InsertMessage(ctx context.Context, m *Message) (*Message, error) {
	if strings.TrimSpace(m.Body) == "" {
		return nil, fmt.Errorf("%w: empty message body", ErrInvalid)
	}
	if m.SenderEmail == "" {
		return nil, fmt.Errorf("%w: message without sender", ErrInvalid)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getConversation(ctx, tx, m.ConversationID); err != nil {
		return nil, err
	}

	var latest int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_at), 0) FROM messages WHERE conversation_id = ?`,
		m.ConversationID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest message: %w", err)
	}

	row := *m
	row.ID = db.newID()
	row.CreatedAt = max(time.Now().UnixMilli(), latest)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_email, sender_name, sender_avatar, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ConversationID, row.SenderEmail, row.SenderName, row.SenderAvatar, row.Body, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &row, nil
}

// ListMessages returns every message of a conversation, oldest first.
func (db *DB) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_email, sender_name, sender_avatar, body, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderEmail, &m.SenderName, &m.SenderAvatar, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of messages in a conversation.
func (db *DB) MessageCount(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	return count, err
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const conversationColumns = `id, product_id, offer_product_id, participants, title, last_message,
	last_message_at, deal_confirmations, deal_state, deal_completed_at, version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(s rowScanner) (*Conversation, error) {
	var (
		c             Conversation
		participants  string
		confirmations string
	)
	if err := s.Scan(&c.ID, &c.ProductID, &c.OfferProductID, &participants, &c.Title, &c.LastMessage,
		&c.LastMessageAt, &confirmations, &c.DealState, &c.DealCompletedAt, &c.Version, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &c.Participants); err != nil {
		return nil, fmt.Errorf("decode participants of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(confirmations), &c.DealConfirmations); err != nil {
		return nil, fmt.Errorf("decode deal_confirmations of %s: %w", c.ID, err)
	}
	if c.DealConfirmations == nil {
		c.DealConfirmations = []string{}
	}
	return &c, nil
}

func encodeSet(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// validParticipants enforces exactly two distinct, non-empty participants.
func validParticipants(p []string) error {
	if len(p) != 2 || p[0] == "" || p[1] == "" || p[0] == p[1] {
		return fmt.Errorf("%w: conversation needs two distinct participants, got %q", ErrInvalid, p)
	}
	return nil
}

// validConfirmations enforces that confirmations are a duplicate-free subset of participants.
func validConfirmations(participants, confirmations []string) error {
	if len(confirmations) > len(participants) {
		return fmt.Errorf("%w: %d confirmations for %d participants", ErrInvalid, len(confirmations), len(participants))
	}
	seen := make(map[string]bool, len(confirmations))
	for _, c := range confirmations {
		if !slices.Contains(participants, c) {
			return fmt.Errorf("%w: %q is not a participant", ErrInvalid, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate confirmation %q", ErrInvalid, c)
		}
		seen[c] = true
	}
	return nil
}

// InsertConversation creates a conversation row. ID, CreatedAt and Version are
// assigned by the store; a missing deal state defaults to none.
func (db *DB) InsertConversation(ctx context.Context, c *Conversation) (*Conversation, error) {
	if err := validParticipants(c.Participants); err != nil {
		return nil, err
	}
	if err := validConfirmations(c.Participants, c.DealConfirmations); err != nil {
		return nil, err
	}

	row := *c
	row.ID = db.newID()
	row.CreatedAt = time.Now().UnixMilli()
	row.Version = 1
	if row.DealState == "" {
		row.DealState = DealNone
	}
	if row.DealConfirmations == nil {
		row.DealConfirmations = []string{}
	}
	row.Participants = slices.Clone(c.Participants)

	participants, err := encodeSet(row.Participants)
	if err != nil {
		return nil, err
	}
	confirmations, err := encodeSet(row.DealConfirmations)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.ProductID, row.OfferProductID, participants, row.Title, row.LastMessage,
		row.LastMessageAt, confirmations, row.DealState, row.DealCompletedAt, row.Version, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return &row, nil
}

// GetConversation returns a conversation by ID, or ErrNotFound.
func (db *DB) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return getConversation(ctx, db.DB, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getConversation(ctx context.Context, q queryRower, id string) (*Conversation, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return c, nil
}

func buildWhere(q ConversationQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.ProductID != "" {
		clauses = append(clauses, "product_id = ?")
		args = append(args, q.ProductID)
	}
	for _, p := range q.Participants {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(conversations.participants) WHERE json_each.value = ?)")
		args = append(args, p)
	}
	if q.DealState != "" {
		clauses = append(clauses, "deal_state = ?")
		args = append(args, q.DealState)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FindConversations returns conversations matching q, most recently active first.
func (db *DB) FindConversations(ctx context.Context, q ConversationQuery) ([]Conversation, error) {
	where, args := buildWhere(q)
	order := " ORDER BY last_message_at DESC, id DESC"
	if q.Oldest {
		order = " ORDER BY created_at ASC, id ASC"
	}
	query := `SELECT ` + conversationColumns + ` FROM conversations` + where + order
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// CountConversations returns the number of conversations matching q.
func (db *DB) CountConversations(ctx context.Context, q ConversationQuery) (int64, error) {
	where, args := buildWhere(q)
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return count, nil
}

// UpdateConversation applies patch to the whole row and bumps its version.
// With IfVersion set, the update only applies to that exact version.
func (db *DB) UpdateConversation(ctx context.Context, id string, patch ConversationPatch) (*Conversation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getConversation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if patch.IfVersion != 0 && patch.IfVersion != current.Version {
		return nil, fmt.Errorf("%w: conversation %s is at version %d, expected %d",
			ErrVersionConflict, id, current.Version, patch.IfVersion)
	}

	sets := []string{"version = version + 1"}
	var args []any
	if patch.OfferProductID != nil {
		sets = append(sets, "offer_product_id = ?")
		args = append(args, *patch.OfferProductID)
	}
	if patch.LastMessage != nil {
		sets = append(sets, "last_message = ?")
		args = append(args, *patch.LastMessage)
	}
	if patch.LastMessageAt != nil {
		sets = append(sets, "last_message_at = ?")
		args = append(args, *patch.LastMessageAt)
	}
	if patch.Deal != nil {
		if err := validConfirmations(current.Participants, patch.Deal.Confirmations); err != nil {
			return nil, err
		}
		confirmations, err := encodeSet(patch.Deal.Confirmations)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "deal_confirmations = ?", "deal_state = ?", "deal_completed_at = ?")
		args = append(args, confirmations, patch.Deal.State, patch.Deal.CompletedAt)
	}

	args = append(args, id, current.Version)
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET `+strings.Join(sets, ", ")+` WHERE id = ? AND version = ?`,
		args...); err != nil {
		return nil, fmt.Errorf("update conversation %s: %w", id, err)
	}

	updated, err := getConversation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

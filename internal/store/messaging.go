// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

// MessagingStore handles conversations, participants and messages. Reads
// and sends are scoped to active participants in the query itself, so a
// non-participant sees the same result as a missing conversation.
type MessagingStore struct {
	db *sql.DB
}

// NewMessagingStore creates a new MessagingStore.
func NewMessagingStore(db *sql.DB) *MessagingStore {
	return &MessagingStore{db: db}
}

const conversationColumns = `c.id, c.name, c.is_group, c.created_by, c.created_at, c.updated_at`

func scanConversation(scanner interface{ Scan(...any) error }, extra ...any) (*models.Conversation, error) {
	var c models.Conversation
	dest := []any{&c.ID, &c.Name, &c.IsGroup, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// unreadExpr counts messages from others sent after the viewer's last read.
// It expects the viewer's participant row aliased as cp.
const unreadExpr = `(SELECT COUNT(*) FROM messages m
	WHERE m.conversation_id = c.id AND m.sender_id <> cp.user_id
	AND m.sent_at > COALESCE(cp.last_read_at, '-infinity'::timestamptz))`

// CreateConversationTx inserts a conversation inside the caller's transaction.
func (s *MessagingStore) CreateConversationTx(ctx context.Context, tx *sql.Tx, name string, isGroup bool, createdBy uuid.UUID) (*models.Conversation, error) {
	c, err := scanConversation(tx.QueryRowContext(ctx, `
		INSERT INTO conversations AS c (name, is_group, created_by)
		VALUES ($1, $2, $3)
		RETURNING `+conversationColumns,
		name, isGroup, createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// AddParticipantTx adds a user to a conversation, reactivating them if
// they had left.
func (s *MessagingStore) AddParticipantTx(ctx context.Context, tx *sql.Tx, conversationID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET is_active = TRUE
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// FindConversation returns a conversation as seen by viewerID, with its
// participants and the viewer's unread count. Returns nil when the
// conversation does not exist or the viewer is not an active participant.
func (s *MessagingStore) FindConversation(ctx context.Context, id, viewerID uuid.UUID) (*models.Conversation, error) {
	var unread int
	c, err := scanConversation(s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`, `+unreadExpr+`
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = $2 AND cp.is_active
		WHERE c.id = $1
	`, id, viewerID), &unread)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	c.UnreadCount = unread

	c.Participants, err = s.Participants(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns the conversations userID actively takes part
// in, most recently active first.
func (s *MessagingStore) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`, `+unreadExpr+`
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id AND cp.user_id = $1 AND cp.is_active
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var items []models.Conversation
	for rows.Next() {
		var unread int
		c, err := scanConversation(rows, &unread)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.UnreadCount = unread
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Participants lists every participant of a conversation, active or not.
func (s *MessagingStore) Participants(ctx context.Context, conversationID uuid.UUID) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cp.conversation_id, cp.user_id, u.username, cp.is_active, cp.joined_at, cp.last_read_at
		FROM conversation_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.conversation_id = $1
		ORDER BY cp.joined_at, u.username
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var items []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.Username, &p.IsActive, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Leave deactivates a participant. It reports false if they were not an
// active participant.
func (s *MessagingStore) Leave(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversation_participants SET is_active = FALSE
		WHERE conversation_id = $1 AND user_id = $2 AND is_active
	`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("leave conversation: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CreateMessageTx inserts a message only if the sender is an active
// participant and bumps the conversation's activity time. Returns nil when
// the sender may not post there.
func (s *MessagingStore) CreateMessageTx(ctx context.Context, tx *sql.Tx, conversationID, senderID uuid.UUID, body string) (*models.Message, error) {
	var m models.Message
	err := tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body)
		SELECT $1::uuid, $2::uuid, $3::text
		WHERE EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid AND is_active
		)
		RETURNING id, conversation_id, sender_id, body, sent_at
	`, conversationID, senderID, body).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	return &m, nil
}

// Messages returns up to limit messages of a conversation sent before the
// given time, oldest first. Returns ok=false when viewerID is not an active
// participant.
func (s *MessagingStore) Messages(ctx context.Context, conversationID, viewerID uuid.UUID, before time.Time, limit int) (msgs []models.Message, ok bool, err error) {
	if limit <= 0 {
		limit = 50
	}
	if before.IsZero() {
		before = time.Now().Add(time.Minute)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2 AND is_active
		)
	`, conversationID, viewerID).Scan(&ok)
	if err != nil {
		return nil, false, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT m.id, m.conversation_id, m.sender_id, u.username, m.body, m.sent_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.conversation_id = $1 AND m.sent_at < $2
			ORDER BY m.sent_at DESC
			LIMIT $3
		) recent
		ORDER BY sent_at
	`, conversationID, before, limit)
	if err != nil {
		return nil, true, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Body, &m.SentAt); err != nil {
			return nil, true, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, true, rows.Err()
}

// MarkRead sets the participant's last_read_at to now. It reports false if
// userID is not an active participant.
func (s *MessagingStore) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversation_participants SET last_read_at = NOW()
		WHERE conversation_id = $1 AND user_id = $2 AND is_active
	`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark conversation read: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

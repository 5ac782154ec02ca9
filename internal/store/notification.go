package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

// NotificationStore persists per-recipient notifications. Every read and
// write is scoped by recipient.
type NotificationStore struct {
	db *sql.DB
}

// NewNotificationStore creates a new NotificationStore.
func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, recipient_id, actor_id, type, ref_kind, ref_id, text, is_read, created_at`

func scanNotification(scanner interface{ Scan(...any) error }) (*models.Notification, error) {
	var n models.Notification
	var kind string
	err := scanner.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.Type, &kind, &n.Ref.ID,
		&n.Text, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Ref.Kind, err = models.ParseRefKind(kind)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a notification and returns it with its generated fields.
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (recipient_id, actor_id, type, ref_kind, ref_id, text)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		n.RecipientID, n.ActorID, n.Type, n.Ref.Kind, n.Ref.ID, n.Text,
	)
	created, err := scanNotification(row)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return created, nil
}

// ActiveRecipients returns the active participants of a conversation other
// than the excluded user.
func (s *NotificationStore) ActiveRecipients(ctx context.Context, conversationID, exclude uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1 AND is_active AND user_id <> $2
		ORDER BY joined_at
	`, conversationID, exclude)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns a recipient's notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3
	`, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, *n)
	}
	return items, rows.Err()
}

// UnreadCount returns the number of unread notifications for a recipient.
func (s *NotificationStore) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. It reports false when no row
// matched the (id, recipient) pair.
func (s *NotificationStore) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return n > 0, nil
}

// MarkAllRead marks every unread notification of a recipient read and
// returns how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

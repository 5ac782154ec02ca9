// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify turns domain events into per-recipient notifications.
// Writes are best effort per recipient: a failure for one recipient is
// logged and the rest still get theirs.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/metrics"
	"trailhub/internal/models"
)

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ActiveRecipients(ctx context.Context, conversationID, exclude uuid.UUID) ([]uuid.UUID, error)
	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

// Publisher pushes a created notification to live listeners.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// Fanout creates notifications for domain events.
type Fanout struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// New creates a Fanout. publisher may be nil.
func New(store Store, publisher Publisher, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{store: store, publisher: publisher, logger: logger}
}

// OnMessageSent notifies every active participant of the message's
// conversation except the sender. It returns the notifications that were
// written.
func (f *Fanout) OnMessageSent(ctx context.Context, msg *models.Message) []models.Notification {
	recipients, err := f.store.ActiveRecipients(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		f.logger.Error("notify: load recipients", "conversation_id", msg.ConversationID, "error", err)
		return nil
	}

	text := fmt.Sprintf("%s sent you a message", msg.SenderName)
	created := make([]models.Notification, 0, len(recipients))
	for _, rid := range recipients {
		if rid == msg.SenderID {
			continue
		}
		n := f.deliver(ctx, &models.Notification{
			RecipientID: rid,
			ActorID:     msg.SenderID,
			Type:        models.NotificationMessage,
			Ref:         models.MessageRef(msg.ID),
			Text:        text,
		})
		if n != nil {
			created = append(created, *n)
		}
	}
	return created
}

// OnReply notifies the author of the parent node that someone replied.
// Replying to yourself notifies nobody.
func (f *Fanout) OnReply(ctx context.Context, reply *models.ReplyNode, parentAuthorID uuid.UUID) *models.Notification {
	if parentAuthorID == uuid.Nil || parentAuthorID == reply.AuthorID {
		return nil
	}
	return f.deliver(ctx, &models.Notification{
		RecipientID: parentAuthorID,
		ActorID:     reply.AuthorID,
		Type:        models.NotificationReply,
		Ref:         models.ReplyRef(reply.ID),
		Text:        fmt.Sprintf("%s replied to your post", reply.AuthorName),
	})
}

func (f *Fanout) deliver(ctx context.Context, n *models.Notification) *models.Notification {
	created, err := f.store.Create(ctx, n)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("insert").Inc()
		f.logger.Error("notify: create notification",
			"recipient_id", n.RecipientID, "type", n.Type, "error", err)
		return nil
	}
	metrics.NotificationsCreated.WithLabelValues(string(created.Type)).Inc()

	if f.publisher != nil {
		if err := f.publisher.Publish(ctx, created); err != nil {
			metrics.NotificationFailures.WithLabelValues("publish").Inc()
			f.logger.Warn("notify: publish notification", "id", created.ID, "error", err)
		}
	}
	return created
}

// List returns the actor's notifications, newest first.
func (f *Fanout) List(ctx context.Context, actorID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	return f.store.List(ctx, actorID, unreadOnly, limit)
}

// UnreadCount returns the actor's unread count.
func (f *Fanout) UnreadCount(ctx context.Context, actorID uuid.UUID) (int, error) {
	return f.store.UnreadCount(ctx, actorID)
}

// MarkRead marks one of the actor's notifications read. Someone else's
// notification is indistinguishable from a missing one.
func (f *Fanout) MarkRead(ctx context.Context, id, actorID uuid.UUID) error {
	ok, err := f.store.MarkRead(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("notify.mark_read", "notification not found")
	}
	return nil
}

// MarkAllRead marks all of the actor's notifications read.
func (f *Fanout) MarkAllRead(ctx context.Context, actorID uuid.UUID) (int64, error) {
	return f.store.MarkAllRead(ctx, actorID)
}

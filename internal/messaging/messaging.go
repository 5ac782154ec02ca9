// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package messaging implements private and group conversations. Only
// active participants can read or post; everyone else gets NotFound.
package messaging

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/store"
	"trailhub/internal/threads"
)

// MaxNameLen is the longest accepted conversation name, in runes.
const MaxNameLen = 200

// MessageNotifier is told about every committed message.
type MessageNotifier interface {
	OnMessageSent(ctx context.Context, msg *models.Message) []models.Notification
}

// Service coordinates conversations and messages.
type Service struct {
	db       *sql.DB
	store    *store.MessagingStore
	users    *store.UserStore
	notifier MessageNotifier
	logger   *slog.Logger
}

// NewService creates a messaging service. notifier may be nil.
func NewService(db *sql.DB, notifier MessageNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		store:    store.NewMessagingStore(db),
		users:    store.NewUserStore(db),
		notifier: notifier,
		logger:   logger,
	}
}

// Create starts a conversation. The creator and the named participants
// join in the same transaction. More than one other participant makes it
// a group.
func (s *Service) Create(ctx context.Context, actor models.Actor, name string, participants []uuid.UUID) (*models.Conversation, error) {
	const op = "messaging.create"

	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLen {
		return nil, apperr.Validation(op, "name is too long (max %d characters)", MaxNameLen)
	}

	others := dedupe(participants, actor.ID)
	if len(others) == 0 {
		return nil, apperr.Validation(op, "at least one other participant is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	c, err := s.store.CreateConversationTx(ctx, tx, name, len(others) > 1, actor.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range append([]uuid.UUID{actor.ID}, others...) {
		if err := s.store.AddParticipantTx(ctx, tx, c.ID, id); err != nil {
			if apperr.IsForeignKeyViolation(err) {
				return nil, apperr.NotFound(op, "user %s not found", id)
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}
	s.logger.Info("conversation created", "conversation_id", c.ID, "created_by", actor.ID, "participants", len(others)+1)

	return s.Get(ctx, actor, c.ID)
}

// dedupe drops duplicates and the actor from a participant list.
func dedupe(ids []uuid.UUID, actorID uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{actorID: true, uuid.Nil: true}
	var out []uuid.UUID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Get returns a conversation the actor actively takes part in.
func (s *Service) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Conversation, error) {
	c, err := s.store.FindConversation(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("messaging.get", "conversation not found")
	}
	return c, nil
}

// List returns the actor's conversations with unread counts.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]models.Conversation, error) {
	return s.store.ListConversations(ctx, actor.ID)
}

// AddParticipant adds a user to a conversation. Only the creator may do so.
func (s *Service) AddParticipant(ctx context.Context, actor models.Actor, conversationID, userID uuid.UUID) (*models.Conversation, error) {
	const op = "messaging.add_participant"

	c, err := s.Get(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwner(op, actor.ID, c); err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound(op, "user not found")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()
	if err := s.store.AddParticipantTx(ctx, tx, conversationID, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}

	return s.Get(ctx, actor, conversationID)
}

// Leave removes the actor from a conversation.
func (s *Service) Leave(ctx context.Context, actor models.Actor, conversationID uuid.UUID) error {
	left, err := s.store.Leave(ctx, conversationID, actor.ID)
	if err != nil {
		return err
	}
	if !left {
		return apperr.NotFound("messaging.leave", "conversation not found")
	}
	return nil
}

// Send posts a message. The fanout runs after commit so notifications never
// point at a rolled-back message.
func (s *Service) Send(ctx context.Context, actor models.Actor, conversationID uuid.UUID, body string) (*models.Message, error) {
	const op = "messaging.send"

	body, err := threads.ValidateBody(op, body)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	msg, err := s.store.CreateMessageTx(ctx, tx, conversationID, actor.ID, body)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, apperr.NotFound(op, "conversation not found")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}

	msg.SenderName = actor.Username
	if s.notifier != nil {
		s.notifier.OnMessageSent(ctx, msg)
	}
	return msg, nil
}

// Messages returns up to limit messages sent before the given time, oldest
// first. A zero before means now.
func (s *Service) Messages(ctx context.Context, actor models.Actor, conversationID uuid.UUID, before time.Time, limit int) ([]models.Message, error) {
	msgs, ok, err := s.store.Messages(ctx, conversationID, actor.ID, before, limit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("messaging.messages", "conversation not found")
	}
	return msgs, nil
}

// MarkRead moves the actor's read marker to now.
func (s *Service) MarkRead(ctx context.Context, actor models.Actor, conversationID uuid.UUID) error {
	ok, err := s.store.MarkRead(ctx, conversationID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("messaging.mark_read", "conversation not found")
	}
	return nil
}

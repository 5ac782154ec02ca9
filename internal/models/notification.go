// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what happened.
type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationReply   NotificationType = "reply"
)

// RefKind names the entity a notification points at.
type RefKind string

const (
	RefMessage      RefKind = "message"
	RefReply        RefKind = "reply"
	RefThread       RefKind = "thread"
	RefConversation RefKind = "conversation"
)

// Reference is a typed pointer to the entity that triggered a notification.
// Build one with MessageRef, ReplyRef, ThreadRef or ConversationRef.
type Reference struct {
	Kind RefKind   `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func MessageRef(id uuid.UUID) Reference      { return Reference{Kind: RefMessage, ID: id} }
func ReplyRef(id uuid.UUID) Reference        { return Reference{Kind: RefReply, ID: id} }
func ThreadRef(id uuid.UUID) Reference       { return Reference{Kind: RefThread, ID: id} }
func ConversationRef(id uuid.UUID) Reference { return Reference{Kind: RefConversation, ID: id} }

// ParseRefKind validates a stored kind string.
func ParseRefKind(s string) (RefKind, error) {
	switch k := RefKind(s); k {
	case RefMessage, RefReply, RefThread, RefConversation:
		return k, nil
	}
	return "", fmt.Errorf("unknown reference kind %q", s)
}

// Notification is a per-recipient event record. Created only by the fanout.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	ActorID     uuid.UUID        `json:"actor_id"`
	Type        NotificationType `json:"type"`
	Ref         Reference        `json:"reference"`
	Text        string           `json:"text"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// OwnerID returns the recipient.
func (n *Notification) OwnerID() uuid.UUID { return n.RecipientID }

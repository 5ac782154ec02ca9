package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a private or group message exchange.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Virtual fields populated by store methods.
	Participants []Participant `json:"participants,omitempty"`
	UnreadCount  int           `json:"unread_count"`
}

// OwnerID returns the creator. Only the creator may add participants.
func (c *Conversation) OwnerID() uuid.UUID { return c.CreatedBy }

// Participant links a user to a conversation.
type Participant struct {
	ConversationID uuid.UUID  `json:"conversation_id"`
	UserID         uuid.UUID  `json:"user_id"`
	Username       string     `json:"username,omitempty"`
	IsActive       bool       `json:"is_active"`
	JoinedAt       time.Time  `json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at"`
}

// Message is a single message in a conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// OwnerID returns the sender.
func (m *Message) OwnerID() uuid.UUID { return m.SenderID }

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/messaging"
)

// Messaging groups direct and group conversation handlers.
type Messaging struct {
	svc *messaging.Service
}

// NewMessaging creates a new Messaging handler group.
func NewMessaging(svc *messaging.Service) *Messaging {
	return &Messaging{svc: svc}
}

// Conversations lists the actor's active conversations.
func (m *Messaging) Conversations(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	convs, err := m.svc.List(r.Context(), act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

type conversationRequest struct {
	Name         string      `json:"name" validate:"max=200"`
	Participants []uuid.UUID `json:"participants" validate:"required,min=1,max=50"`
}

// CreateConversation starts a conversation with the given participants.
func (m *Messaging) CreateConversation(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req conversationRequest
	if err := decode(w, r, "messaging.create", &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := m.svc.Create(r.Context(), act, req.Name, req.Participants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// Conversation returns one conversation with its participants.
func (m *Messaging) Conversation(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := m.svc.Get(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

type participantRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// AddParticipant adds a member to a conversation. Creator only.
func (m *Messaging) AddParticipant(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req participantRequest
	if err := decode(w, r, "messaging.add_participant", &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := m.svc.AddParticipant(r.Context(), act, id, req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Leave deactivates the actor's participation.
func (m *Messaging) Leave(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.svc.Leave(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Messages pages backwards through a conversation. ?before= takes an
// RFC 3339 timestamp; results are oldest first.
func (m *Messaging) Messages(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, r, apperr.Validation("messaging.messages", "invalid before timestamp"))
			return
		}
	}
	msgs, err := m.svc.Messages(r.Context(), act, id, before, queryInt(r, "limit", 50, 200))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Send posts a message to a conversation.
func (m *Messaging) Send(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bodyRequest
	if err := decode(w, r, "messaging.send", &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := m.svc.Send(r.Context(), act, id, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// MarkRead moves the actor's read marker to now.
func (m *Messaging) MarkRead(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := m.svc.MarkRead(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/forum"
	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/store"
	"trailhub/internal/threads"
)

// Chat groups chat room handlers. Messages are reply nodes in the chat
// scope, shown newest thread first.
type Chat struct {
	rooms    *store.ChatRoomStore
	messages *threads.Store
	policy   *guard.Policy
	notifier forum.ReplyNotifier
}

// NewChat creates a new Chat handler group. notifier may be nil.
func NewChat(rooms *store.ChatRoomStore, messages *threads.Store, policy *guard.Policy, notifier forum.ReplyNotifier) *Chat {
	return &Chat{rooms: rooms, messages: messages, policy: policy, notifier: notifier}
}

// Rooms lists chat rooms, most recently active first.
func (c *Chat) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.rooms.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type roomRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateRoom opens a new chat room.
func (c *Chat) CreateRoom(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req roomRequest
	if err := decode(w, r, "chat.create_room", &req); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := c.rooms.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("chat room created", "room", room.Slug, "actor_id", act.ID)
	writeJSON(w, http.StatusCreated, room)
}

func (c *Chat) room(r *http.Request) (*models.ChatRoom, error) {
	slug := chi.URLParam(r, "slug")
	room, err := c.rooms.FindBySlug(r.Context(), slug)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.NotFound("chat.room", "chat room %q not found", slug)
	}
	return room, nil
}

// Messages returns a room's message forest.
func (c *Chat) Messages(w http.ResponseWriter, r *http.Request) {
	room, err := c.room(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	forest, err := c.messages.Tree(r.Context(), room.ID, threads.RootsNewestFirst)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// Post adds a message or a reply to a room.
func (c *Chat) Post(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	room, err := c.room(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req postRequest
	if err := decode(w, r, "chat.post", &req); err != nil {
		writeError(w, r, err)
		return
	}

	var parentAuthor uuid.UUID
	if req.ParentID != nil {
		if parent, err := c.messages.Get(r.Context(), *req.ParentID); err == nil && parent != nil {
			parentAuthor = parent.AuthorID
		}
	}

	msg, err := c.messages.Create(r.Context(), room.ID, act.ID, req.Body, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg.AuthorName = act.Username
	if c.notifier != nil && parentAuthor != uuid.Nil {
		c.notifier.OnReply(r.Context(), msg, parentAuthor)
	}
	writeJSON(w, http.StatusCreated, msg)
}

// UpdateMessage edits a message. Only its author may do this.
func (c *Chat) UpdateMessage(w http.ResponseWriter, r *http.Request) {
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
	if err := decode(w, r, "chat.update", &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := c.messages.Update(r.Context(), id, act.ID, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// DeleteMessage removes a message and its replies. Authors may delete
// their own; moderators may delete any.
func (c *Chat) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	const op = "chat.delete"

	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := c.messages.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msg == nil {
		writeError(w, r, apperr.NotFound(op, "message not found"))
		return
	}

	var removed int64
	if guard.IsOwner(act.ID, msg) {
		removed, err = c.messages.Delete(r.Context(), id, act.ID)
	} else if err = c.policy.Require(op, act, guard.ObjPost, guard.ActDelete); err == nil {
		removed, err = c.messages.Remove(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

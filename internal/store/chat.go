package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
	"trailhub/internal/slug"
)

// ChatRoomStore manages chat rooms. Messages inside a room are handled by
// the threads package in its chat scope.
type ChatRoomStore struct {
	db *sql.DB
}

// NewChatRoomStore creates a new ChatRoomStore.
func NewChatRoomStore(db *sql.DB) *ChatRoomStore {
	return &ChatRoomStore{db: db}
}

const chatRoomColumns = `id, name, slug, created_at, updated_at`

func scanChatRoom(scanner interface{ Scan(...any) error }) (*models.ChatRoom, error) {
	var r models.ChatRoom
	if err := scanner.Scan(&r.ID, &r.Name, &r.Slug, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns all rooms, most recently active first.
func (s *ChatRoomStore) List(ctx context.Context) ([]models.ChatRoom, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chatRoomColumns+` FROM chat_rooms ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}
	defer rows.Close()

	var items []models.ChatRoom
	for rows.Next() {
		r, err := scanChatRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat room: %w", err)
		}
		items = append(items, *r)
	}
	return items, rows.Err()
}

// FindBySlug retrieves a room by slug. Returns nil if not found.
func (s *ChatRoomStore) FindBySlug(ctx context.Context, roomSlug string) (*models.ChatRoom, error) {
	r, err := scanChatRoom(s.db.QueryRowContext(ctx, `SELECT `+chatRoomColumns+` FROM chat_rooms WHERE slug = $1`, roomSlug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat room: %w", err)
	}
	return r, nil
}

// Create adds a room, deriving the slug from its name.
func (s *ChatRoomStore) Create(ctx context.Context, name string) (*models.ChatRoom, error) {
	const op = "chat_room.create"
	roomSlug := slug.Generate(name)
	if roomSlug == "" {
		return nil, apperr.Validation(op, "room name must contain letters or digits")
	}
	r, err := scanChatRoom(s.db.QueryRowContext(ctx, `
		INSERT INTO chat_rooms (name, slug) VALUES ($1, $2)
		RETURNING `+chatRoomColumns, name, roomSlug))
	if err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict(op, "room %q already exists", roomSlug)
		}
		return nil, fmt.Errorf("create chat room: %w", err)
	}
	return r, nil
}

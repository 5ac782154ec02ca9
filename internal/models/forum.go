// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ForumCategory groups threads. Ordered by DisplayOrder, then Name.
type ForumCategory struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`

	// Virtual fields populated by store methods.
	ThreadCount int `json:"thread_count"`
}

// ThreadState is the pair of moderation flags on a thread.
type ThreadState struct {
	Locked bool `json:"is_locked"`
	Pinned bool `json:"is_pinned"`
}

// Thread is a forum discussion. Its posts are ReplyNodes in the forum scope.
type Thread struct {
	ID         uuid.UUID `json:"id"`
	CategoryID int       `json:"category_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	Title      string    `json:"title"`
	IsPinned   bool      `json:"is_pinned"`
	IsLocked   bool      `json:"is_locked"`
	ViewCount  int       `json:"view_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Virtual fields populated by store methods.
	AuthorName string       `json:"author_name,omitempty"`
	PostCount  int          `json:"post_count"`
	Posts      []*ReplyNode `json:"posts,omitempty"`
}

// OwnerID returns the thread creator.
func (t *Thread) OwnerID() uuid.UUID { return t.AuthorID }

// State returns the moderation flags.
func (t *Thread) State() ThreadState {
	return ThreadState{Locked: t.IsLocked, Pinned: t.IsPinned}
}

// ReplyNode is one entry in a reply forest: a forum post or a chat message.
// ParentID nil marks a root.
type ReplyNode struct {
	ID          uuid.UUID  `json:"id"`
	ContainerID uuid.UUID  `json:"container_id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Body        string     `json:"body"`
	IsEdited    bool       `json:"is_edited"`
	EditedAt    *time.Time `json:"edited_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Virtual fields populated when a tree is built.
	AuthorName string       `json:"author_name,omitempty"`
	BodyHTML   string       `json:"body_html,omitempty"`
	Depth      int          `json:"depth"`
	Photos     []Photo      `json:"photos,omitempty"`
	Children   []*ReplyNode `json:"replies"`
}

// OwnerID returns the author of the node.
func (n *ReplyNode) OwnerID() uuid.UUID { return n.AuthorID }

// ReplyRevision is a snapshot of a node body taken before an edit.
type ReplyRevision struct {
	ID        int64     `json:"id"`
	NodeID    uuid.UUID `json:"node_id"`
	Body      string    `json:"body"`
	EditedBy  uuid.UUID `json:"edited_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRoom is the container for chat ReplyNodes.
type ChatRoom struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

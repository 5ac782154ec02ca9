// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package forum implements thread lifecycle and moderation: creating
// threads with their opening post, the lock/pin state machine, view
// counting and post operations on top of the threads engine.
package forum

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/store"
	"trailhub/internal/threads"
)

// MaxTitleLen is the longest accepted thread title, in runes.
const MaxTitleLen = 200

// ReplyNotifier is told about replies so the parent author can be notified.
type ReplyNotifier interface {
	OnReply(ctx context.Context, reply *models.ReplyNode, parentAuthorID uuid.UUID) *models.Notification
}

// Service coordinates forum threads and their posts.
type Service struct {
	db       *sql.DB
	threads  *store.ForumStore
	posts    *threads.Store
	photos   *store.PhotoStore
	policy   *guard.Policy
	notifier ReplyNotifier
	logger   *slog.Logger
}

// NewService creates a forum service. notifier may be nil.
func NewService(db *sql.DB, policy *guard.Policy, notifier ReplyNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		threads:  store.NewForumStore(db),
		posts:    threads.NewStore(db, threads.ForumPosts),
		photos:   store.NewPhotoStore(db),
		policy:   policy,
		notifier: notifier,
		logger:   logger,
	}
}

// Posts exposes the forum post store.
func (s *Service) Posts() *threads.Store { return s.posts }

// Categories lists forum categories in display order.
func (s *Service) Categories(ctx context.Context) ([]models.ForumCategory, error) {
	return s.threads.Categories(ctx)
}

func validateTitle(op, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation(op, "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", apperr.Validation(op, "title is too long (max %d characters)", MaxTitleLen)
	}
	return title, nil
}

// CreateThread creates a thread and its opening post in one transaction.
func (s *Service) CreateThread(ctx context.Context, actor models.Actor, categoryID int, title, body string) (*models.Thread, error) {
	const op = "forum.create_thread"

	title, err := validateTitle(op, title)
	if err != nil {
		return nil, err
	}
	if _, err := threads.ValidateBody(op, body); err != nil {
		return nil, err
	}

	exists, err := s.threads.CategoryExists(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound(op, "category %d not found", categoryID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	t, err := s.threads.CreateThreadTx(ctx, tx, categoryID, actor.ID, title)
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound(op, "category %d not found", categoryID)
		}
		return nil, err
	}

	first, err := s.posts.CreateTx(ctx, tx, t.ID, actor.ID, body, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}

	s.logger.Info("thread created", "thread_id", t.ID, "category_id", categoryID, "author_id", actor.ID)

	first.AuthorName = actor.Username
	t.AuthorName = actor.Username
	t.PostCount = 1
	t.Posts = []*models.ReplyNode{first}
	return t, nil
}

// findThread loads a thread or returns NotFound.
func (s *Service) findThread(ctx context.Context, op string, id uuid.UUID) (*models.Thread, error) {
	t, err := s.threads.FindThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound(op, "thread not found")
	}
	return t, nil
}

// GetThread records a view and returns the thread with its reply forest.
// The opening post comes first; each post carries its attached photos.
func (s *Service) GetThread(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	const op = "forum.get_thread"

	views, err := s.RecordView(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.findThread(ctx, op, id)
	if err != nil {
		return nil, err
	}
	t.ViewCount = views

	t.Posts, err = s.posts.Tree(ctx, id, threads.RootsOldestFirst)
	if err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByThread(ctx, id)
	if err != nil {
		return nil, err
	}
	threads.Walk(t.Posts, func(n *models.ReplyNode) {
		n.Photos = photos[n.ID]
	})
	return t, nil
}

// ListThreads lists threads, pinned first then most recently active.
func (s *Service) ListThreads(ctx context.Context, categoryID *int, limit, offset int) ([]models.Thread, error) {
	return s.threads.ListThreads(ctx, categoryID, limit, offset)
}

// RecordView increments the view counter and returns the new value.
func (s *Service) RecordView(ctx context.Context, id uuid.UUID) (int, error) {
	count, found, err := s.threads.IncrementViews(ctx, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFound("forum.record_view", "thread not found")
	}
	return count, nil
}

// ToggleLock flips the locked flag. The thread creator and moderators may
// do this.
func (s *Service) ToggleLock(ctx context.Context, id uuid.UUID, actor models.Actor) (models.ThreadState, error) {
	return s.toggle(ctx, "forum.toggle_lock", id, actor, s.threads.ToggleLock)
}

// TogglePin flips the pinned flag. The thread creator and moderators may
// do this.
func (s *Service) TogglePin(ctx context.Context, id uuid.UUID, actor models.Actor) (models.ThreadState, error) {
	return s.toggle(ctx, "forum.toggle_pin", id, actor, s.threads.TogglePin)
}

func (s *Service) toggle(ctx context.Context, op string, id uuid.UUID, actor models.Actor,
	flip func(context.Context, uuid.UUID) (*models.ThreadState, error)) (models.ThreadState, error) {
	t, err := s.findThread(ctx, op, id)
	if err != nil {
		return models.ThreadState{}, err
	}
	if err := s.policy.RequireOwnerOrModerator(op, actor, t); err != nil {
		return models.ThreadState{}, err
	}

	st, err := flip(ctx, id)
	if err != nil {
		return models.ThreadState{}, err
	}
	if st == nil {
		return models.ThreadState{}, apperr.NotFound(op, "thread not found")
	}

	s.logger.Info("thread state changed", "op", op, "thread_id", id, "actor_id", actor.ID,
		"locked", st.Locked, "pinned", st.Pinned)
	return *st, nil
}

// UpdateThreadTitle renames a thread. Only its creator may do this.
func (s *Service) UpdateThreadTitle(ctx context.Context, id uuid.UUID, actor models.Actor, title string) (*models.Thread, error) {
	const op = "forum.update_title"

	t, err := s.findThread(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwner(op, actor.ID, t); err != nil {
		return nil, err
	}
	title, err = validateTitle(op, title)
	if err != nil {
		return nil, err
	}

	updated, err := s.threads.UpdateTitle(ctx, id, title)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound(op, "thread not found")
	}
	return updated, nil
}

// DeleteThread deletes a thread and all its posts. Only its creator may do
// this.
func (s *Service) DeleteThread(ctx context.Context, id uuid.UUID, actor models.Actor) error {
	const op = "forum.delete_thread"

	t, err := s.findThread(ctx, op, id)
	if err != nil {
		return err
	}
	if err := guard.RequireOwner(op, actor.ID, t); err != nil {
		return err
	}
	if err := s.threads.DeleteThread(ctx, id); err != nil {
		return err
	}
	s.logger.Info("thread deleted", "thread_id", id, "actor_id", actor.ID)
	return nil
}

// CreatePost adds a post to a thread, optionally as a reply. Locked
// threads reject posts from everyone, including the creator.
func (s *Service) CreatePost(ctx context.Context, threadID uuid.UUID, actor models.Actor, body string, parentID *uuid.UUID) (*models.ReplyNode, error) {
	var parentAuthor uuid.UUID
	if parentID != nil {
		parent, err := s.posts.Get(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent != nil && parent.ContainerID == threadID {
			parentAuthor = parent.AuthorID
		}
	}

	post, err := s.posts.Create(ctx, threadID, actor.ID, body, parentID)
	if err != nil {
		return nil, err
	}
	post.AuthorName = actor.Username

	if s.notifier != nil && parentAuthor != uuid.Nil {
		s.notifier.OnReply(ctx, post, parentAuthor)
	}
	return post, nil
}

// UpdatePost edits a post. Only its author may do this.
func (s *Service) UpdatePost(ctx context.Context, postID uuid.UUID, actor models.Actor, body string) (*models.ReplyNode, error) {
	return s.posts.Update(ctx, postID, actor.ID, body)
}

// DeletePost removes a post and its replies. Authors may delete their own
// posts; moderators may delete any post.
func (s *Service) DeletePost(ctx context.Context, postID uuid.UUID, actor models.Actor) (int64, error) {
	const op = "forum.delete_post"

	n, err := s.posts.Get(ctx, postID)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, apperr.NotFound(op, "post not found")
	}
	if guard.IsOwner(actor.ID, n) {
		return s.posts.Delete(ctx, postID, actor.ID)
	}
	if err := s.policy.Require(op, actor, guard.ObjPost, guard.ActDelete); err != nil {
		return 0, err
	}

	removed, err := s.posts.Remove(ctx, postID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("post removed by moderator", "post_id", postID, "actor_id", actor.ID, "removed", removed)
	return removed, nil
}

// PostRevisions lists earlier bodies of a post.
func (s *Service) PostRevisions(ctx context.Context, postID uuid.UUID) ([]models.ReplyRevision, error) {
	n, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("forum.post_revisions", "post not found")
	}
	return s.posts.Revisions(ctx, postID)
}

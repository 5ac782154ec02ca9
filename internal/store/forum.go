// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trailhub/internal/models"
)

// ForumStore manages forum categories and threads. Posts live in the
// threads package.
type ForumStore struct {
	db *sql.DB
}

// NewForumStore returns a new ForumStore.
func NewForumStore(db *sql.DB) *ForumStore {
	return &ForumStore{db: db}
}

const threadColumns = `t.id, t.category_id, t.author_id, t.title, t.is_pinned, t.is_locked,
	t.view_count, t.created_at, t.updated_at`

// scanThread scans a row into a Thread. Extra destinations follow the
// thread columns.
func scanThread(scanner interface{ Scan(...any) error }, extra ...any) (*models.Thread, error) {
	var t models.Thread
	dest := []any{
		&t.ID, &t.CategoryID, &t.AuthorID, &t.Title, &t.IsPinned, &t.IsLocked,
		&t.ViewCount, &t.CreatedAt, &t.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &t, nil
}

// Categories returns all categories ordered by display order, then name,
// with thread counts.
func (s *ForumStore) Categories(ctx context.Context) ([]models.ForumCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.display_order, c.created_at,
		       COUNT(t.id) AS thread_count
		FROM forum_categories c
		LEFT JOIN forum_threads t ON t.category_id = c.id
		GROUP BY c.id
		ORDER BY c.display_order, c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list forum categories: %w", err)
	}
	defer rows.Close()

	var items []models.ForumCategory
	for rows.Next() {
		var c models.ForumCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &c.CreatedAt, &c.ThreadCount); err != nil {
			return nil, fmt.Errorf("scan forum category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CategoryExists reports whether a category with the given ID exists.
func (s *ForumStore) CategoryExists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM forum_categories WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check forum category: %w", err)
	}
	return exists, nil
}

// CreateThreadTx inserts a thread inside the caller's transaction.
func (s *ForumStore) CreateThreadTx(ctx context.Context, tx *sql.Tx, categoryID int, authorID uuid.UUID, title string) (*models.Thread, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO forum_threads AS t (category_id, author_id, title)
		VALUES ($1, $2, $3)
		RETURNING `+threadColumns,
		categoryID, authorID, title,
	)
	t, err := scanThread(row)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

// FindThread retrieves a thread with its author name and post count.
// Returns nil if not found.
func (s *ForumStore) FindThread(ctx context.Context, id uuid.UUID) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+threadColumns+`, u.username,
		       (SELECT COUNT(*) FROM forum_posts p WHERE p.thread_id = t.id)
		FROM forum_threads t
		JOIN users u ON u.id = t.author_id
		WHERE t.id = $1
	`, id)

	var author string
	var posts int
	t, err := scanThread(row, &author, &posts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find thread: %w", err)
	}
	t.AuthorName = author
	t.PostCount = posts
	return t, nil
}

// ListThreads returns threads pinned first, then most recently updated.
// A nil categoryID lists every category.
func (s *ForumStore) ListThreads(ctx context.Context, categoryID *int, limit, offset int) ([]models.Thread, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+threadColumns+`, u.username,
		       (SELECT COUNT(*) FROM forum_posts p WHERE p.thread_id = t.id)
		FROM forum_threads t
		JOIN users u ON u.id = t.author_id
		WHERE $1::int IS NULL OR t.category_id = $1
		ORDER BY t.is_pinned DESC, t.updated_at DESC
		LIMIT $2 OFFSET $3
	`, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var items []models.Thread
	for rows.Next() {
		var author string
		var posts int
		t, err := scanThread(rows, &author, &posts)
		if err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		t.AuthorName = author
		t.PostCount = posts
		items = append(items, *t)
	}
	return items, rows.Err()
}

// IncrementViews adds one to the view counter in a single statement and
// returns the new value. found is false when the thread does not exist.
func (s *ForumStore) IncrementViews(ctx context.Context, id uuid.UUID) (count int, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		UPDATE forum_threads SET view_count = view_count + 1
		WHERE id = $1
		RETURNING view_count
	`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment thread views: %w", err)
	}
	return count, true, nil
}

// ToggleLock flips is_locked atomically and returns the new state.
func (s *ForumStore) ToggleLock(ctx context.Context, id uuid.UUID) (*models.ThreadState, error) {
	return s.toggle(ctx, id, "is_locked = NOT is_locked")
}

// TogglePin flips is_pinned atomically and returns the new state.
func (s *ForumStore) TogglePin(ctx context.Context, id uuid.UUID) (*models.ThreadState, error) {
	return s.toggle(ctx, id, "is_pinned = NOT is_pinned")
}

// toggle applies one of the fixed flip expressions above. Moderation
// toggles do not bump updated_at, so pinning does not reorder by activity.
func (s *ForumStore) toggle(ctx context.Context, id uuid.UUID, set string) (*models.ThreadState, error) {
	var st models.ThreadState
	err := s.db.QueryRowContext(ctx, `
		UPDATE forum_threads SET `+set+`
		WHERE id = $1
		RETURNING is_locked, is_pinned
	`, id).Scan(&st.Locked, &st.Pinned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("toggle thread state: %w", err)
	}
	return &st, nil
}

// UpdateTitle changes a thread title. Returns nil if not found.
func (s *ForumStore) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*models.Thread, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE forum_threads AS t SET title = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+threadColumns,
		title, id,
	)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update thread title: %w", err)
	}
	return t, nil
}

// DeleteThread removes a thread; its posts cascade.
func (s *ForumStore) DeleteThread(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM forum_threads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

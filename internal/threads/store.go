// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package threads stores and materializes reply forests. Forum posts and
// chat messages share the same engine; a Scope selects the tables.
package threads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/guard"
	"trailhub/internal/markdown"
	"trailhub/internal/models"
)

// MaxBodyLen is the longest accepted body, in runes.
const MaxBodyLen = 20_000

// Store persists reply nodes for one scope.
type Store struct {
	db     *sql.DB
	scope  Scope
	render func(string) string
}

// NewStore returns a Store for the given scope. Bodies are rendered to
// HTML with the markdown package when a tree is built.
func NewStore(db *sql.DB, scope Scope) *Store {
	return &Store{db: db, scope: scope, render: markdown.Render}
}

// Scope returns the scope this store serves.
func (s *Store) Scope() Scope { return s.scope }

func (s *Store) columns(alias string) string {
	cols := []string{"id", s.scope.ContainerCol, "author_id", "parent_id", "body",
		"is_edited", "edited_at", "created_at", "updated_at"}
	if alias != "" {
		for i, c := range cols {
			cols[i] = alias + "." + c
		}
	}
	return strings.Join(cols, ", ")
}

// scanNode scans a row into a ReplyNode.
func scanNode(scanner interface{ Scan(...any) error }, extra ...any) (*models.ReplyNode, error) {
	var n models.ReplyNode
	dest := []any{
		&n.ID, &n.ContainerID, &n.AuthorID, &n.ParentID, &n.Body,
		&n.IsEdited, &n.EditedAt, &n.CreatedAt, &n.UpdatedAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &n, nil
}

// ValidateBody trims the body and checks it is non-empty and within limits.
func ValidateBody(op, body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apperr.Validation(op, "body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLen {
		return "", apperr.Validation(op, "body is too long (max %d characters)", MaxBodyLen)
	}
	return body, nil
}

// Create adds a node to a container, as a root or as a reply to parentID.
func (s *Store) Create(ctx context.Context, containerID, authorID uuid.UUID, body string, parentID *uuid.UUID) (*models.ReplyNode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", s.scope.op("create"), err)
	}
	defer tx.Rollback()

	n, err := s.CreateTx(ctx, tx, containerID, authorID, body, parentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", s.scope.op("create"), err)
	}
	n.BodyHTML = s.render(n.Body)
	return n, nil
}

// CreateTx is Create inside a caller-owned transaction. The container row
// is share-locked for the rest of the transaction, so a concurrent lock
// toggle either happens before the check or waits for the insert.
func (s *Store) CreateTx(ctx context.Context, tx *sql.Tx, containerID, authorID uuid.UUID, body string, parentID *uuid.UUID) (*models.ReplyNode, error) {
	op := s.scope.op("create")

	body, err := ValidateBody(op, body)
	if err != nil {
		return nil, err
	}

	if err := s.checkContainer(ctx, tx, op, containerID); err != nil {
		return nil, err
	}

	if parentID != nil {
		if err := s.checkAncestry(ctx, tx, op, containerID, *parentID); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s, author_id, parent_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, s.scope.Table, s.scope.ContainerCol, s.columns("")),
		containerID, authorID, parentID, body,
	)
	n, err := scanNode(row)
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound(op, "author or parent does not exist")
		}
		return nil, fmt.Errorf("%s insert: %w", op, err)
	}

	if err := s.touchContainer(ctx, tx, containerID); err != nil {
		return nil, err
	}
	return n, nil
}

// checkContainer verifies the container exists and, for lockable scopes,
// that it is not locked.
func (s *Store) checkContainer(ctx context.Context, tx *sql.Tx, op string, containerID uuid.UUID) error {
	lockCol := "FALSE"
	if s.scope.Lockable {
		lockCol = "is_locked"
	}

	var locked bool
	err := tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1 FOR SHARE`, lockCol, s.scope.ContainerTable,
	), containerID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "%s not found", s.scope.ContainerLabel)
	}
	if err != nil {
		return fmt.Errorf("%s check container: %w", op, err)
	}
	if locked {
		return apperr.Locked(op, "%s is locked", s.scope.ContainerLabel)
	}
	return nil
}

// checkAncestry walks the parent chain inside the container. The parent
// must exist in the same container and its chain must reach a root without
// revisiting a node.
func (s *Store) checkAncestry(ctx context.Context, tx *sql.Tx, op string, containerID, parentID uuid.UUID) error {
	var depth int
	var cycle bool
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, ARRAY[id] AS path, FALSE AS cycle
			FROM %[1]s
			WHERE id = $1 AND %[2]s = $2
		  UNION ALL
			SELECT p.id, p.parent_id, c.path || p.id, p.id = ANY(c.path)
			FROM %[1]s p
			JOIN chain c ON p.id = c.parent_id
			WHERE NOT c.cycle AND p.%[2]s = $2
		)
		SELECT COUNT(*), COALESCE(BOOL_OR(cycle), FALSE) FROM chain`,
		s.scope.Table, s.scope.ContainerCol,
	), parentID, containerID).Scan(&depth, &cycle)
	if err != nil {
		return fmt.Errorf("%s check ancestry: %w", op, err)
	}
	if depth == 0 {
		return apperr.NotFound(op, "parent not found in this %s", s.scope.ContainerLabel)
	}
	if cycle {
		return apperr.Validation(op, "reply chain contains a cycle")
	}
	return nil
}

func (s *Store) touchContainer(ctx context.Context, tx *sql.Tx, containerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET updated_at = NOW() WHERE id = $1`, s.scope.ContainerTable,
	), containerID)
	if err != nil {
		return fmt.Errorf("%s touch container: %w", s.scope.Name, err)
	}
	return nil
}

// Get retrieves a node by ID. Returns nil if not found.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.ReplyNode, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s, u.username
		FROM %s n JOIN users u ON u.id = n.author_id
		WHERE n.id = $1`, s.columns("n"), s.scope.Table), id)

	var author string
	n, err := scanNode(row, &author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s get: %w", s.scope.Name, err)
	}
	n.AuthorName = author
	n.BodyHTML = s.render(n.Body)
	return n, nil
}

// Tree returns the container's reply forest with rendered bodies.
func (s *Store) Tree(ctx context.Context, containerID uuid.UUID, order RootOrder) ([]*models.ReplyNode, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.scope.ContainerTable,
	), containerID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%s tree: %w", s.scope.Name, err)
	}
	if !exists {
		return nil, apperr.NotFound(s.scope.op("tree"), "%s not found", s.scope.ContainerLabel)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, u.username
		FROM %s n JOIN users u ON u.id = n.author_id
		WHERE n.%s = $1
		ORDER BY n.created_at`, s.columns("n"), s.scope.Table, s.scope.ContainerCol), containerID)
	if err != nil {
		return nil, fmt.Errorf("%s tree: %w", s.scope.Name, err)
	}
	defer rows.Close()

	var nodes []*models.ReplyNode
	for rows.Next() {
		var author string
		n, err := scanNode(rows, &author)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.scope.Name, err)
		}
		n.AuthorName = author
		n.BodyHTML = s.render(n.Body)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s tree rows: %w", s.scope.Name, err)
	}

	return BuildForest(nodes, order), nil
}

// Update replaces a node's body. Only the author may edit. An identical
// body is a no-op; a real change snapshots the old body, sets the edited
// flag and timestamps, and touches the container.
func (s *Store) Update(ctx context.Context, id, actorID uuid.UUID, newBody string) (*models.ReplyNode, error) {
	op := s.scope.op("update")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	current, err := s.lockNode(ctx, tx, op, id)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireOwner(op, actorID, current); err != nil {
		return nil, err
	}

	newBody, err = ValidateBody(op, newBody)
	if err != nil {
		return nil, err
	}
	if newBody == current.Body {
		current.BodyHTML = s.render(current.Body)
		return current, nil
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (node_id, body, edited_by) VALUES ($1, $2, $3)`, s.scope.RevisionTable,
	), id, current.Body, actorID); err != nil {
		return nil, fmt.Errorf("%s save revision: %w", op, err)
	}

	row := tx.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET body = $1, is_edited = TRUE, edited_at = NOW(), updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, s.scope.Table, s.columns("")), newBody, id)
	updated, err := scanNode(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.touchContainer(ctx, tx, updated.ContainerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}

	updated.BodyHTML = s.render(updated.Body)
	return updated, nil
}

// Delete removes a node and every descendant. Only the author may delete.
// Returns the number of nodes removed.
func (s *Store) Delete(ctx context.Context, id, actorID uuid.UUID) (int64, error) {
	op := s.scope.op("delete")
	return s.deleteSubtree(ctx, op, id, func(n *models.ReplyNode) error {
		return guard.RequireOwner(op, actorID, n)
	})
}

// Remove deletes a node and its descendants without an ownership check.
// Callers must have authorized the actor (moderation).
func (s *Store) Remove(ctx context.Context, id uuid.UUID) (int64, error) {
	return s.deleteSubtree(ctx, s.scope.op("remove"), id, nil)
}

func (s *Store) deleteSubtree(ctx context.Context, op string, id uuid.UUID, authorize func(*models.ReplyNode) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	n, err := s.lockNode(ctx, tx, op, id)
	if err != nil {
		return 0, err
	}
	if authorize != nil {
		if err := authorize(n); err != nil {
			return 0, err
		}
	}

	// UNION (not UNION ALL) stops at nodes already collected.
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %[1]s WHERE id = $1
		  UNION
			SELECT c.id FROM %[1]s c JOIN subtree s ON c.parent_id = s.id
		)
		DELETE FROM %[1]s WHERE id IN (SELECT id FROM subtree)`, s.scope.Table), id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}

	if err := s.touchContainer(ctx, tx, n.ContainerID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s commit: %w", op, err)
	}
	return removed, nil
}

// lockNode loads a node FOR UPDATE, returning NotFound if it is missing.
func (s *Store) lockNode(ctx context.Context, tx *sql.Tx, op string, id uuid.UUID) (*models.ReplyNode, error) {
	row := tx.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, s.columns(""), s.scope.Table,
	), id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "%s not found", s.scope.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s load: %w", op, err)
	}
	return n, nil
}

// Revisions lists earlier bodies of a node, newest first.
func (s *Store) Revisions(ctx context.Context, id uuid.UUID) ([]models.ReplyRevision, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, node_id, body, edited_by, created_at
		FROM %s WHERE node_id = $1
		ORDER BY created_at DESC, id DESC`, s.scope.RevisionTable), id)
	if err != nil {
		return nil, fmt.Errorf("list %s revisions: %w", s.scope.Name, err)
	}
	defer rows.Close()

	var revs []models.ReplyRevision
	for rows.Next() {
		var r models.ReplyRevision
		if err := rows.Scan(&r.ID, &r.NodeID, &r.Body, &r.EditedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// CountIn returns the number of nodes in a container.
func (s *Store) CountIn(ctx context.Context, containerID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s WHERE %s = $1`, s.scope.Table, s.scope.ContainerCol,
	), containerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.scope.Name, err)
	}
	return count, nil
}

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

	"trailhub/internal/apperr"
	"trailhub/internal/models"
)

// PhotoStore handles photo metadata. The image bytes live in object
// storage; rows keep only the URLs and object keys.
type PhotoStore struct {
	db *sql.DB
}

// NewPhotoStore creates a new PhotoStore.
func NewPhotoStore(db *sql.DB) *PhotoStore {
	return &PhotoStore{db: db}
}

const photoColumns = `id, user_id, trail_id, hike_id, url, thumb_url, s3_key, thumb_s3_key,
	content_type, size_bytes, caption, latitude, longitude, created_at`

func scanPhoto(scanner interface{ Scan(...any) error }) (*models.Photo, error) {
	return scanPhotoWith(scanner)
}

// scanPhotoWith scans leading columns into lead, then the photo columns.
func scanPhotoWith(scanner interface{ Scan(...any) error }, lead ...any) (*models.Photo, error) {
	var p models.Photo
	dest := append(lead,
		&p.ID, &p.UserID, &p.TrailID, &p.HikeID, &p.URL, &p.ThumbURL, &p.S3Key, &p.ThumbS3Key,
		&p.ContentType, &p.SizeBytes, &p.Caption, &p.Latitude, &p.Longitude, &p.CreatedAt,
	)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a photo record and returns it with the generated ID. A
// photo with a PostID is linked to that forum post in the same transaction.
func (s *PhotoStore) Create(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	const op = "photo.create"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	created, err := scanPhoto(tx.QueryRowContext(ctx, `
		INSERT INTO photos (user_id, trail_id, hike_id, url, thumb_url, s3_key, thumb_s3_key,
			content_type, size_bytes, caption, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+photoColumns,
		p.UserID, p.TrailID, p.HikeID, p.URL, p.ThumbURL, p.S3Key, p.ThumbS3Key,
		p.ContentType, p.SizeBytes, p.Caption, p.Latitude, p.Longitude,
	))
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound(op, "trail or hike not found")
		}
		return nil, fmt.Errorf("create photo: %w", err)
	}

	if p.PostID != nil {
		_, err := tx.ExecContext(ctx, `INSERT INTO forum_post_photos (post_id, photo_id) VALUES ($1, $2)`, *p.PostID, created.ID)
		if err != nil {
			if apperr.IsForeignKeyViolation(err) {
				return nil, apperr.NotFound(op, "post not found")
			}
			return nil, fmt.Errorf("%s link post: %w", op, err)
		}
		created.PostID = p.PostID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}
	return created, nil
}

// PostAuthor returns the author of a forum post, or nil if the post does
// not exist.
func (s *PhotoStore) PostAuthor(ctx context.Context, postID uuid.UUID) (*uuid.UUID, error) {
	var author uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT author_id FROM forum_posts WHERE id = $1`, postID).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post author: %w", err)
	}
	return &author, nil
}

// ListByThread returns the photos attached to a thread's posts, keyed by
// post and oldest first within each post.
func (s *PhotoStore) ListByThread(ctx context.Context, threadID uuid.UUID) (map[uuid.UUID][]models.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, `+photoColumns+`
		FROM forum_post_photos
		JOIN photos ON photos.id = photo_id
		WHERE post_id IN (SELECT id FROM forum_posts WHERE thread_id = $1)
		ORDER BY created_at, id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list post photos: %w", err)
	}
	defer rows.Close()

	byPost := make(map[uuid.UUID][]models.Photo)
	for rows.Next() {
		var postID uuid.UUID
		p, err := scanPhotoWith(rows, &postID)
		if err != nil {
			return nil, fmt.Errorf("scan post photo: %w", err)
		}
		p.PostID = &postID
		byPost[postID] = append(byPost[postID], *p)
	}
	return byPost, rows.Err()
}

// FindByID retrieves a photo. Returns nil if not found.
func (s *PhotoStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	p, err := scanPhoto(s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find photo by id: %w", err)
	}
	return p, nil
}

// ListByTrail returns a trail's photos, newest first.
func (s *PhotoStore) ListByTrail(ctx context.Context, trailID uuid.UUID, limit, offset int) ([]models.Photo, error) {
	return s.list(ctx, "trail_id", trailID, limit, offset)
}

// ListByUser returns a user's photos, newest first.
func (s *PhotoStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Photo, error) {
	return s.list(ctx, "user_id", userID, limit, offset)
}

func (s *PhotoStore) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]models.Photo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+`
		FROM photos
		WHERE `+col+` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var items []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Delete removes a photo owned by userID and returns it so the caller can
// clean up the stored objects. Returns nil if no such photo belongs to the
// user.
func (s *PhotoStore) Delete(ctx context.Context, id, userID uuid.UUID) (*models.Photo, error) {
	p, err := scanPhoto(s.db.QueryRowContext(ctx, `
		DELETE FROM photos WHERE id = $1 AND user_id = $2
		RETURNING `+photoColumns, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete photo: %w", err)
	}
	return p, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
	"trailhub/internal/slug"
)

// CatalogStore handles parks, trails and tags.
type CatalogStore struct {
	db *sql.DB
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

const parkColumns = `p.id, p.code, p.name, p.states, p.description, p.url, p.latitude, p.longitude,
	p.last_synced_at, p.created_at, p.updated_at`

func scanPark(scanner interface{ Scan(...any) error }) (*models.Park, error) {
	var p models.Park
	err := scanner.Scan(&p.ID, &p.Code, &p.Name, &p.States, &p.Description, &p.URL,
		&p.Latitude, &p.Longitude, &p.LastSyncedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// trailSelect loads trails with their rating aggregate and tag names.
const trailSelect = `
	SELECT t.id, t.external_id, t.park_id, t.name, t.description, t.location,
	       t.latitude, t.longitude, t.difficulty, t.length_miles, t.elevation_gain,
	       t.trail_type, t.image_url, t.is_active, t.raw, t.last_synced_at,
	       t.created_at, t.updated_at,
	       (SELECT AVG(r.rating)::float8 FROM reviews r WHERE r.trail_id = t.id),
	       (SELECT COUNT(*) FROM reviews r WHERE r.trail_id = t.id),
	       COALESCE((SELECT json_agg(tg.name ORDER BY tg.name)
	                 FROM trail_tags tt JOIN tags tg ON tg.id = tt.tag_id
	                 WHERE tt.trail_id = t.id), '[]')
	FROM trails t
	LEFT JOIN parks p ON p.id = t.park_id`

func scanTrail(scanner interface{ Scan(...any) error }) (*models.Trail, error) {
	var t models.Trail
	var raw, tags []byte
	err := scanner.Scan(&t.ID, &t.ExternalID, &t.ParkID, &t.Name, &t.Description, &t.Location,
		&t.Latitude, &t.Longitude, &t.Difficulty, &t.LengthMiles, &t.ElevationGain,
		&t.TrailType, &t.ImageURL, &t.IsActive, &raw, &t.LastSyncedAt,
		&t.CreatedAt, &t.UpdatedAt,
		&t.AverageRating, &t.ReviewCount, &tags)
	if err != nil {
		return nil, err
	}
	t.Raw = raw
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("decode trail tags: %w", err)
	}
	return &t, nil
}

// UpsertPark inserts a park or updates the row with the same code. The
// row's id is preserved across updates. created is true on insert.
func (s *CatalogStore) UpsertPark(ctx context.Context, p *models.Park) (uuid.UUID, bool, error) {
	var id uuid.UUID
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO parks (code, name, states, description, url, latitude, longitude, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			states = EXCLUDED.states,
			description = EXCLUDED.description,
			url = EXCLUDED.url,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING id, (xmax = 0)
	`, p.Code, p.Name, p.States, p.Description, p.URL, p.Latitude, p.Longitude).Scan(&id, &created)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert park %s: %w", p.Code, err)
	}
	return id, created, nil
}

// UpsertTrail inserts a trail or updates the row with the same external id.
func (s *CatalogStore) UpsertTrail(ctx context.Context, t *models.Trail) (uuid.UUID, bool, error) {
	raw := t.Raw
	if len(raw) == 0 {
		raw = []byte(`{}`)
	}
	var id uuid.UUID
	var created bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO trails (external_id, park_id, name, description, location, latitude, longitude,
		                    difficulty, length_miles, elevation_gain, trail_type, image_url,
		                    is_active, raw, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			park_id = EXCLUDED.park_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			difficulty = EXCLUDED.difficulty,
			length_miles = EXCLUDED.length_miles,
			elevation_gain = EXCLUDED.elevation_gain,
			trail_type = EXCLUDED.trail_type,
			image_url = EXCLUDED.image_url,
			is_active = EXCLUDED.is_active,
			raw = EXCLUDED.raw,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING id, (xmax = 0)
	`, t.ExternalID, t.ParkID, t.Name, t.Description, t.Location, t.Latitude, t.Longitude,
		t.Difficulty, t.LengthMiles, t.ElevationGain, t.TrailType, t.ImageURL,
		t.IsActive, string(raw)).Scan(&id, &created)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("upsert trail %s: %w", t.ExternalID, err)
	}
	return id, created, nil
}

// ListParks returns parks ordered by name. A non-empty state keeps parks
// whose state list contains it.
func (s *CatalogStore) ListParks(ctx context.Context, state string, limit, offset int) ([]models.Park, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+parkColumns+`
		FROM parks p
		WHERE $1 = '' OR $1 = ANY(string_to_array(p.states, ','))
		ORDER BY p.name
		LIMIT $2 OFFSET $3
	`, strings.ToUpper(state), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}
	defer rows.Close()

	var parks []models.Park
	for rows.Next() {
		p, err := scanPark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan park: %w", err)
		}
		parks = append(parks, *p)
	}
	return parks, rows.Err()
}

// FindParkByCode returns a park by its registry code. Returns nil if not found.
func (s *CatalogStore) FindParkByCode(ctx context.Context, code string) (*models.Park, error) {
	p, err := scanPark(s.db.QueryRowContext(ctx, `
		SELECT `+parkColumns+` FROM parks p WHERE p.code = $1
	`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find park: %w", err)
	}
	return p, nil
}

// ListTrails returns active trails matching the filter, ordered by name.
func (s *CatalogStore) ListTrails(ctx context.Context, f models.TrailFilter) ([]models.Trail, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	rows, err := s.db.QueryContext(ctx, trailSelect+`
		WHERE t.is_active
		  AND ($1 = '' OR p.code = $1)
		  AND ($2 = '' OR t.difficulty = $2)
		  AND ($3 = '' OR t.name ILIKE '%' || $3 || '%' OR t.description ILIKE '%' || $3 || '%')
		  AND ($4 = '' OR EXISTS (
		        SELECT 1 FROM trail_tags tt JOIN tags tg ON tg.id = tt.tag_id
		        WHERE tt.trail_id = t.id AND tg.slug = $4))
		ORDER BY t.name, t.id
		LIMIT $5 OFFSET $6
	`, f.ParkCode, string(f.Difficulty), f.Query, f.Tag, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}
	defer rows.Close()

	var trails []models.Trail
	for rows.Next() {
		t, err := scanTrail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trail: %w", err)
		}
		trails = append(trails, *t)
	}
	return trails, rows.Err()
}

// FindTrailByID returns a trail. Returns nil if not found.
func (s *CatalogStore) FindTrailByID(ctx context.Context, id uuid.UUID) (*models.Trail, error) {
	t, err := scanTrail(s.db.QueryRowContext(ctx, trailSelect+` WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find trail: %w", err)
	}
	return t, nil
}

// CountParks returns the number of parks.
func (s *CatalogStore) CountParks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count parks: %w", err)
	}
	return n, nil
}

// CountTrails returns the number of trails.
func (s *CatalogStore) CountTrails(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trails: %w", err)
	}
	return n, nil
}

// Tags lists tags with the number of trails carrying each.
func (s *CatalogStore) Tags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tg.id, tg.name, tg.slug, COUNT(tt.trail_id)
		FROM tags tg
		LEFT JOIN trail_tags tt ON tt.tag_id = tg.id
		GROUP BY tg.id
		ORDER BY tg.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.TrailCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagTrail attaches a tag to a trail, creating the tag on first use.
// Tagging twice is a no-op.
func (s *CatalogStore) TagTrail(ctx context.Context, trailID uuid.UUID, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	tagSlug := slug.Generate(name)
	if tagSlug == "" || len(name) > 50 {
		return nil, apperr.Validation("catalog.tag_trail", "tag name must be 1-50 characters with at least one letter or digit")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var t models.Tag
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, name, slug
	`, name, tagSlug).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert tag: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trail_tags (trail_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, trailID, t.ID); err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("catalog.tag_trail", "trail not found")
		}
		return nil, fmt.Errorf("tag trail: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &t, nil
}

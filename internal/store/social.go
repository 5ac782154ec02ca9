package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
)

// SocialStore handles the community layer on top of catalog trails:
// saved trails, reviews, condition reports and trail features.
type SocialStore struct {
	db *sql.DB
}

// NewSocialStore creates a new SocialStore.
func NewSocialStore(db *sql.DB) *SocialStore {
	return &SocialStore{db: db}
}

// SaveTrail bookmarks a trail. Saving twice is a no-op.
func (s *SocialStore) SaveTrail(ctx context.Context, userID, trailID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_trails (user_id, trail_id) VALUES ($1, $2)
		ON CONFLICT (user_id, trail_id) DO NOTHING
	`, userID, trailID)
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return apperr.NotFound("trail.save", "trail not found")
		}
		return fmt.Errorf("save trail: %w", err)
	}
	return nil
}

// UnsaveTrail removes a bookmark and reports whether one existed.
func (s *SocialStore) UnsaveTrail(ctx context.Context, userID, trailID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_trails WHERE user_id = $1 AND trail_id = $2`, userID, trailID)
	if err != nil {
		return false, fmt.Errorf("unsave trail: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SavedTrails lists a user's bookmarks, newest first.
func (s *SocialStore) SavedTrails(ctx context.Context, userID uuid.UUID) ([]models.SavedTrail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.user_id, st.trail_id, t.name, st.created_at
		FROM saved_trails st
		JOIN trails t ON t.id = st.trail_id
		WHERE st.user_id = $1
		ORDER BY st.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved trails: %w", err)
	}
	defer rows.Close()

	var items []models.SavedTrail
	for rows.Next() {
		var st models.SavedTrail
		if err := rows.Scan(&st.UserID, &st.TrailID, &st.TrailName, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved trail: %w", err)
		}
		items = append(items, st)
	}
	return items, rows.Err()
}

const reviewColumns = `r.id, r.trail_id, r.user_id, u.username, r.rating, r.title, r.body,
	r.visited_date, r.created_at, r.updated_at`

func scanReview(scanner interface{ Scan(...any) error }) (*models.Review, error) {
	var r models.Review
	err := scanner.Scan(&r.ID, &r.TrailID, &r.UserID, &r.Username, &r.Rating, &r.Title, &r.Body,
		&r.VisitedDate, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts a review. A missing trail is NotFound.
func (s *SocialStore) CreateReview(ctx context.Context, r *models.Review) (*models.Review, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (trail_id, user_id, rating, title, body, visited_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.TrailID, r.UserID, r.Rating, r.Title, r.Body, r.VisitedDate).Scan(&id)
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("review.create", "trail not found")
		}
		return nil, fmt.Errorf("create review: %w", err)
	}
	return s.FindReview(ctx, id)
}

// FindReview retrieves a review. Returns nil if not found.
func (s *SocialStore) FindReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	return r, nil
}

// UpdateReview rewrites the editable fields of a review.
func (s *SocialStore) UpdateReview(ctx context.Context, r *models.Review) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET rating = $1, title = $2, body = $3, visited_date = $4, updated_at = NOW()
		WHERE id = $5
	`, r.Rating, r.Title, r.Body, r.VisitedDate, r.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// DeleteReview removes a review.
func (s *SocialStore) DeleteReview(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// TrailReviews lists a trail's reviews newest first, with the average
// rating across all of them (0 when there are none).
func (s *SocialStore) TrailReviews(ctx context.Context, trailID uuid.UUID) ([]models.Review, float64, error) {
	var avg float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews WHERE trail_id = $1`, trailID,
	).Scan(&avg)
	if err != nil {
		return nil, 0, fmt.Errorf("average rating: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.trail_id = $1
		ORDER BY r.created_at DESC
	`, trailID)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var items []models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		items = append(items, *r)
	}
	return items, avg, rows.Err()
}

const conditionColumns = `id, trail_id, user_id, condition_type, description, severity, reported_at`

func scanCondition(scanner interface{ Scan(...any) error }) (*models.TrailCondition, error) {
	var c models.TrailCondition
	if err := scanner.Scan(&c.ID, &c.TrailID, &c.UserID, &c.ConditionType, &c.Description, &c.Severity, &c.ReportedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReportCondition inserts a condition report.
func (s *SocialStore) ReportCondition(ctx context.Context, c *models.TrailCondition) (*models.TrailCondition, error) {
	created, err := scanCondition(s.db.QueryRowContext(ctx, `
		INSERT INTO trail_conditions (trail_id, user_id, condition_type, description, severity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+conditionColumns,
		c.TrailID, c.UserID, c.ConditionType, c.Description, c.Severity,
	))
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("condition.report", "trail not found")
		}
		return nil, fmt.Errorf("report condition: %w", err)
	}
	return created, nil
}

// FindCondition retrieves a condition report. Returns nil if not found.
func (s *SocialStore) FindCondition(ctx context.Context, id uuid.UUID) (*models.TrailCondition, error) {
	c, err := scanCondition(s.db.QueryRowContext(ctx, `SELECT `+conditionColumns+` FROM trail_conditions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find condition: %w", err)
	}
	return c, nil
}

// TrailConditions lists reports for a trail made after since, newest first.
// A zero since returns every report.
func (s *SocialStore) TrailConditions(ctx context.Context, trailID uuid.UUID, since time.Time) ([]models.TrailCondition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conditionColumns+`
		FROM trail_conditions
		WHERE trail_id = $1 AND reported_at >= $2
		ORDER BY reported_at DESC
	`, trailID, since)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	var items []models.TrailCondition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// DeleteCondition removes a condition report.
func (s *SocialStore) DeleteCondition(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trail_conditions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete condition: %w", err)
	}
	return nil
}

const featureColumns = `id, trail_id, created_by, feature_type, name, description, latitude, longitude,
	created_at, updated_at`

func scanFeature(scanner interface{ Scan(...any) error }) (*models.TrailFeature, error) {
	var f models.TrailFeature
	err := scanner.Scan(&f.ID, &f.TrailID, &f.CreatedBy, &f.FeatureType, &f.Name, &f.Description,
		&f.Latitude, &f.Longitude, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFeature inserts a trail feature. A missing trail is NotFound.
func (s *SocialStore) CreateFeature(ctx context.Context, f *models.TrailFeature) (*models.TrailFeature, error) {
	created, err := scanFeature(s.db.QueryRowContext(ctx, `
		INSERT INTO trail_features (trail_id, created_by, feature_type, name, description, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+featureColumns,
		f.TrailID, f.CreatedBy, f.FeatureType, f.Name, f.Description, f.Latitude, f.Longitude,
	))
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("feature.create", "trail not found")
		}
		return nil, fmt.Errorf("create feature: %w", err)
	}
	return created, nil
}

// FindFeature retrieves a trail feature. Returns nil if not found.
func (s *SocialStore) FindFeature(ctx context.Context, id uuid.UUID) (*models.TrailFeature, error) {
	f, err := scanFeature(s.db.QueryRowContext(ctx, `SELECT `+featureColumns+` FROM trail_features WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find feature: %w", err)
	}
	return f, nil
}

// TrailFeatures lists a trail's features by name. An empty featureType
// lists every type.
func (s *SocialStore) TrailFeatures(ctx context.Context, trailID uuid.UUID, featureType string) ([]models.TrailFeature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+featureColumns+`
		FROM trail_features
		WHERE trail_id = $1 AND ($2 = '' OR feature_type = $2)
		ORDER BY name, created_at
	`, trailID, featureType)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var items []models.TrailFeature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// UpdateFeature rewrites the editable fields of a feature and returns the
// stored row.
func (s *SocialStore) UpdateFeature(ctx context.Context, f *models.TrailFeature) (*models.TrailFeature, error) {
	updated, err := scanFeature(s.db.QueryRowContext(ctx, `
		UPDATE trail_features
		SET feature_type = $1, name = $2, description = $3, latitude = $4, longitude = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+featureColumns,
		f.FeatureType, f.Name, f.Description, f.Latitude, f.Longitude, f.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("feature.update", "feature not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update feature: %w", err)
	}
	return updated, nil
}

// DeleteFeature removes a trail feature.
func (s *SocialStore) DeleteFeature(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trail_features WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete feature: %w", err)
	}
	return nil
}

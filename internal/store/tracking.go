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

// TrackingStore handles hikes, GPS tracks and their points.
type TrackingStore struct {
	db *sql.DB
}

// NewTrackingStore creates a new TrackingStore.
func NewTrackingStore(db *sql.DB) *TrackingStore {
	return &TrackingStore{db: db}
}

const hikeColumns = `id, user_id, trail_id, started_at, ended_at, duration_min, distance_miles,
	notes, weather, completed, created_at`

func scanHike(scanner interface{ Scan(...any) error }) (*models.Hike, error) {
	var h models.Hike
	err := scanner.Scan(&h.ID, &h.UserID, &h.TrailID, &h.StartedAt, &h.EndedAt, &h.DurationMin,
		&h.DistanceMiles, &h.Notes, &h.Weather, &h.Completed, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateHike starts a hike. A missing trail is NotFound.
func (s *TrackingStore) CreateHike(ctx context.Context, userID uuid.UUID, trailID *uuid.UUID, startedAt time.Time) (*models.Hike, error) {
	h, err := scanHike(s.db.QueryRowContext(ctx, `
		INSERT INTO hikes (user_id, trail_id, started_at)
		VALUES ($1, $2, $3)
		RETURNING `+hikeColumns,
		userID, trailID, startedAt,
	))
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("hike.start", "trail not found")
		}
		return nil, fmt.Errorf("create hike: %w", err)
	}
	return h, nil
}

// FindHike retrieves a hike. Returns nil if not found.
func (s *TrackingStore) FindHike(ctx context.Context, id uuid.UUID) (*models.Hike, error) {
	h, err := scanHike(s.db.QueryRowContext(ctx, `SELECT `+hikeColumns+` FROM hikes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find hike: %w", err)
	}
	return h, nil
}

// CompleteHike closes an open hike. It returns nil when the hike is
// missing or already completed, so two racing completions cannot both win.
func (s *TrackingStore) CompleteHike(ctx context.Context, h *models.Hike) (*models.Hike, error) {
	done, err := scanHike(s.db.QueryRowContext(ctx, `
		UPDATE hikes
		SET ended_at = $1, duration_min = $2, distance_miles = $3, notes = $4, weather = $5, completed = TRUE
		WHERE id = $6 AND NOT completed
		RETURNING `+hikeColumns,
		h.EndedAt, h.DurationMin, h.DistanceMiles, h.Notes, h.Weather, h.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete hike: %w", err)
	}
	return done, nil
}

// ListHikes returns a user's hikes, newest first. A nil completed or
// trailID leaves that filter off.
func (s *TrackingStore) ListHikes(ctx context.Context, userID uuid.UUID, completed *bool, trailID *uuid.UUID) ([]models.Hike, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hikeColumns+`
		FROM hikes
		WHERE user_id = $1
		  AND ($2::boolean IS NULL OR completed = $2)
		  AND ($3::uuid IS NULL OR trail_id = $3)
		ORDER BY started_at DESC
	`, userID, completed, trailID)
	if err != nil {
		return nil, fmt.Errorf("list hikes: %w", err)
	}
	defer rows.Close()

	var items []models.Hike
	for rows.Next() {
		h, err := scanHike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hike: %w", err)
		}
		items = append(items, *h)
	}
	return items, rows.Err()
}

// HikeStats aggregates a user's hikes. Distance and hours cover completed
// hikes only.
func (s *TrackingStore) HikeStats(ctx context.Context, userID uuid.UUID) (models.HikeStats, error) {
	var st models.HikeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE completed),
		       COALESCE(SUM(distance_miles) FILTER (WHERE completed), 0)::float8,
		       COALESCE(SUM(duration_min) FILTER (WHERE completed), 0)::float8 / 60,
		       COUNT(*) FILTER (WHERE NOT completed)
		FROM hikes
		WHERE user_id = $1
	`, userID).Scan(&st.TotalHikes, &st.TotalDistance, &st.TotalHours, &st.ActiveHikes)
	if err != nil {
		return st, fmt.Errorf("hike stats: %w", err)
	}
	return st, nil
}

// DeleteHike removes a hike; its tracks and photos cascade.
func (s *TrackingStore) DeleteHike(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hikes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete hike: %w", err)
	}
	return nil
}

const trackColumns = `t.id, t.hike_id, t.user_id, t.started_at, t.ended_at, t.total_distance,
	(SELECT COUNT(*) FROM gps_points p WHERE p.track_id = t.id)`

func scanTrack(scanner interface{ Scan(...any) error }) (*models.GPSTrack, error) {
	var t models.GPSTrack
	err := scanner.Scan(&t.ID, &t.HikeID, &t.UserID, &t.StartedAt, &t.EndedAt, &t.TotalDistance, &t.PointCount)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTrack starts a recording on a hike.
func (s *TrackingStore) CreateTrack(ctx context.Context, hikeID, userID uuid.UUID) (*models.GPSTrack, error) {
	t, err := scanTrack(s.db.QueryRowContext(ctx, `
		INSERT INTO gps_tracks AS t (hike_id, user_id) VALUES ($1, $2)
		RETURNING `+trackColumns, hikeID, userID))
	if err != nil {
		if apperr.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("track.start", "hike not found")
		}
		return nil, fmt.Errorf("create track: %w", err)
	}
	return t, nil
}

// FindTrack retrieves a track with its point count. Returns nil if not found.
func (s *TrackingStore) FindTrack(ctx context.Context, id uuid.UUID) (*models.GPSTrack, error) {
	t, err := scanTrack(s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM gps_tracks t WHERE t.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find track: %w", err)
	}
	return t, nil
}

// AddPoint appends a point to an open track. The track row is locked so
// point_order stays gapless under concurrent writers, and a stopped track
// rejects the point with ErrValidation.
func (s *TrackingStore) AddPoint(ctx context.Context, p *models.GPSPoint) (*models.GPSPoint, error) {
	const op = "track.add_point"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	var endedAt *time.Time
	err = tx.QueryRowContext(ctx, `SELECT ended_at FROM gps_tracks WHERE id = $1 FOR UPDATE`, p.TrackID).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(op, "track not found")
	}
	if err != nil {
		return nil, fmt.Errorf("%s lock track: %w", op, err)
	}
	if endedAt != nil {
		return nil, apperr.Validation(op, "track has been stopped")
	}

	added := *p
	err = tx.QueryRowContext(ctx, `
		INSERT INTO gps_points (track_id, latitude, longitude, altitude, accuracy, speed, recorded_at, point_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(point_order), 0) + 1 FROM gps_points WHERE track_id = $1))
		RETURNING id, point_order
	`, p.TrackID, p.Latitude, p.Longitude, p.Altitude, p.Accuracy, p.Speed, p.RecordedAt,
	).Scan(&added.ID, &added.PointOrder)
	if err != nil {
		return nil, fmt.Errorf("%s insert: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}
	return &added, nil
}

// Points returns a track's points in recording order.
func (s *TrackingStore) Points(ctx context.Context, trackID uuid.UUID) ([]models.GPSPoint, error) {
	return queryPoints(ctx, s.db, trackID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryPoints(ctx context.Context, q queryer, trackID uuid.UUID) ([]models.GPSPoint, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, track_id, latitude, longitude, altitude, accuracy, speed, recorded_at, point_order
		FROM gps_points
		WHERE track_id = $1
		ORDER BY point_order
	`, trackID)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	defer rows.Close()

	var items []models.GPSPoint
	for rows.Next() {
		var p models.GPSPoint
		if err := rows.Scan(&p.ID, &p.TrackID, &p.Latitude, &p.Longitude, &p.Altitude, &p.Accuracy,
			&p.Speed, &p.RecordedAt, &p.PointOrder); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// StopTrack closes an open track. The track row is locked for the whole
// stop, the same lock AddPoint takes, so distance sees every point the
// track will ever hold. It returns nil when the track is missing or
// already stopped.
func (s *TrackingStore) StopTrack(ctx context.Context, id uuid.UUID, distance func([]models.GPSPoint) float64) (*models.GPSTrack, error) {
	const op = "track.stop"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s begin: %w", op, err)
	}
	defer tx.Rollback()

	var endedAt *time.Time
	err = tx.QueryRowContext(ctx, `SELECT ended_at FROM gps_tracks WHERE id = $1 FOR UPDATE`, id).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s lock track: %w", op, err)
	}
	if endedAt != nil {
		return nil, nil
	}

	points, err := queryPoints(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err := scanTrack(tx.QueryRowContext(ctx, `
		UPDATE gps_tracks AS t SET ended_at = NOW(), total_distance = $2
		WHERE t.id = $1
		RETURNING `+trackColumns, id, distance(points)))
	if err != nil {
		return nil, fmt.Errorf("%s update: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s commit: %w", op, err)
	}
	return t, nil
}

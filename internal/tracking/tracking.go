// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tracking records hikes and their GPS tracks.
package tracking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/guard"
	"trailhub/internal/models"
	"trailhub/internal/store"
)

// Completion carries the optional details recorded when a hike ends.
type Completion struct {
	EndedAt       time.Time
	DistanceMiles *float64
	Notes         string
	Weather       string
}

// Service handles hikes and tracks for their owners.
type Service struct {
	store  *store.TrackingStore
	logger *slog.Logger
}

// NewService creates a tracking service backed by the given store.
func NewService(s *store.TrackingStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger}
}

// StartHike begins a hike. A zero start time means now.
func (s *Service) StartHike(ctx context.Context, actor models.Actor, trailID *uuid.UUID, startedAt time.Time) (*models.Hike, error) {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	if startedAt.After(time.Now().Add(time.Minute)) {
		return nil, apperr.Validation("hike.start", "start time is in the future")
	}
	return s.store.CreateHike(ctx, actor.ID, trailID, startedAt)
}

// ownedHike loads a hike and checks the actor owns it.
func (s *Service) ownedHike(ctx context.Context, op string, actor models.Actor, id uuid.UUID) (*models.Hike, error) {
	h, err := s.store.FindHike(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound(op, "hike not found")
	}
	if err := guard.RequireOwner(op, actor.ID, h); err != nil {
		return nil, err
	}
	return h, nil
}

// GetHike returns one of the actor's hikes.
func (s *Service) GetHike(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Hike, error) {
	return s.ownedHike(ctx, "hike.get", actor, id)
}

// CompleteHike closes a hike, deriving the duration in whole minutes from
// the start and end times. Completing twice is a validation error.
func (s *Service) CompleteHike(ctx context.Context, actor models.Actor, id uuid.UUID, c Completion) (*models.Hike, error) {
	const op = "hike.complete"

	h, err := s.ownedHike(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}
	if h.Completed {
		return nil, apperr.Validation(op, "hike is already completed")
	}

	if c.EndedAt.IsZero() {
		c.EndedAt = time.Now()
	}
	if c.EndedAt.Before(h.StartedAt) {
		return nil, apperr.Validation(op, "end time is before the start time")
	}
	if c.DistanceMiles != nil && *c.DistanceMiles < 0 {
		return nil, apperr.Validation(op, "distance cannot be negative")
	}

	minutes := int(c.EndedAt.Sub(h.StartedAt) / time.Minute)
	h.EndedAt = &c.EndedAt
	h.DurationMin = &minutes
	h.DistanceMiles = c.DistanceMiles
	h.Notes = strings.TrimSpace(c.Notes)
	h.Weather = strings.TrimSpace(c.Weather)

	done, err := s.store.CompleteHike(ctx, h)
	if err != nil {
		return nil, err
	}
	if done == nil {
		// Lost a race with another completion.
		return nil, apperr.Validation(op, "hike is already completed")
	}
	s.logger.Info("hike completed", "hike_id", id, "user_id", actor.ID, "duration_min", minutes)
	return done, nil
}

// ListHikes returns the actor's hikes with optional filters.
func (s *Service) ListHikes(ctx context.Context, actor models.Actor, completed *bool, trailID *uuid.UUID) ([]models.Hike, error) {
	return s.store.ListHikes(ctx, actor.ID, completed, trailID)
}

// ActiveHikes returns the actor's hikes that have not been completed.
func (s *Service) ActiveHikes(ctx context.Context, actor models.Actor) ([]models.Hike, error) {
	open := false
	return s.store.ListHikes(ctx, actor.ID, &open, nil)
}

// Stats summarizes the actor's hikes.
func (s *Service) Stats(ctx context.Context, actor models.Actor) (models.HikeStats, error) {
	return s.store.HikeStats(ctx, actor.ID)
}

// DeleteHike removes one of the actor's hikes.
func (s *Service) DeleteHike(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if _, err := s.ownedHike(ctx, "hike.delete", actor, id); err != nil {
		return err
	}
	return s.store.DeleteHike(ctx, id)
}

// StartTrack begins a GPS recording on one of the actor's hikes.
func (s *Service) StartTrack(ctx context.Context, actor models.Actor, hikeID uuid.UUID) (*models.GPSTrack, error) {
	if _, err := s.ownedHike(ctx, "track.start", actor, hikeID); err != nil {
		return nil, err
	}
	return s.store.CreateTrack(ctx, hikeID, actor.ID)
}

// ownedTrack loads a track and checks the actor owns it.
func (s *Service) ownedTrack(ctx context.Context, op string, actor models.Actor, id uuid.UUID) (*models.GPSTrack, error) {
	t, err := s.store.FindTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound(op, "track not found")
	}
	if err := guard.RequireOwner(op, actor.ID, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTrack returns one of the actor's tracks.
func (s *Service) GetTrack(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.GPSTrack, error) {
	return s.ownedTrack(ctx, "track.get", actor, id)
}

// AddPoint appends a fix to an open track. A zero recorded time means now.
func (s *Service) AddPoint(ctx context.Context, actor models.Actor, trackID uuid.UUID, p models.GPSPoint) (*models.GPSPoint, error) {
	const op = "track.add_point"

	if !ValidCoordinate(p.Latitude, p.Longitude) {
		return nil, apperr.Validation(op, "latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	t, err := s.ownedTrack(ctx, op, actor, trackID)
	if err != nil {
		return nil, err
	}
	if t.Stopped() {
		return nil, apperr.Validation(op, "track has been stopped")
	}

	p.TrackID = trackID
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}
	return s.store.AddPoint(ctx, &p)
}

// Points returns a track's points in recording order.
func (s *Service) Points(ctx context.Context, actor models.Actor, trackID uuid.UUID) ([]models.GPSPoint, error) {
	if _, err := s.ownedTrack(ctx, "track.points", actor, trackID); err != nil {
		return nil, err
	}
	return s.store.Points(ctx, trackID)
}

// StopTrack closes a track and stores the distance along its points.
// Stopping twice is a validation error.
func (s *Service) StopTrack(ctx context.Context, actor models.Actor, trackID uuid.UUID) (*models.GPSTrack, error) {
	const op = "track.stop"

	t, err := s.ownedTrack(ctx, op, actor, trackID)
	if err != nil {
		return nil, err
	}
	if t.Stopped() {
		return nil, apperr.Validation(op, "track is already stopped")
	}

	stopped, err := s.store.StopTrack(ctx, trackID, PathDistance)
	if err != nil {
		return nil, err
	}
	if stopped == nil {
		return nil, apperr.Validation(op, "track is already stopped")
	}
	s.logger.Info("track stopped", "track_id", trackID, "points", stopped.PointCount, "distance_miles", stopped.TotalDistance)
	return stopped, nil
}

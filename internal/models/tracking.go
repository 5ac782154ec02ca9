// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Hike is one outing by a user, optionally on a catalog trail.
type Hike struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	TrailID       *uuid.UUID `json:"trail_id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	DurationMin   *int       `json:"duration_minutes"`
	DistanceMiles *float64   `json:"distance_miles"`
	Notes         string     `json:"notes"`
	Weather       string     `json:"weather"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"created_at"`
}

// OwnerID returns the hiker.
func (h *Hike) OwnerID() uuid.UUID { return h.UserID }

// HikeStats summarizes a user's hikes.
type HikeStats struct {
	TotalHikes    int     `json:"total_hikes"`
	TotalDistance float64 `json:"total_distance_miles"`
	TotalHours    float64 `json:"total_hours"`
	ActiveHikes   int     `json:"active_hikes"`
}

// GPSTrack is a recording attached to a hike.
type GPSTrack struct {
	ID            uuid.UUID  `json:"id"`
	HikeID        uuid.UUID  `json:"hike_id"`
	UserID        uuid.UUID  `json:"user_id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	TotalDistance float64    `json:"total_distance_miles"`
	PointCount    int        `json:"point_count"`
}

// OwnerID returns the recording user.
func (t *GPSTrack) OwnerID() uuid.UUID { return t.UserID }

// Stopped reports whether the track has been closed.
func (t *GPSTrack) Stopped() bool { return t.EndedAt != nil }

// GPSPoint is one fix in a track. PointOrder is assigned on insert.
type GPSPoint struct {
	ID         int64     `json:"id"`
	TrackID    uuid.UUID `json:"track_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   *float64  `json:"altitude"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	RecordedAt time.Time `json:"recorded_at"`
	PointOrder int       `json:"point_order"`
}

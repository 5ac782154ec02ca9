// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty is the normalized trail difficulty rating.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyExpert   Difficulty = "expert"
)

// Valid reports whether d is one of the four ratings.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Park is a national park synced from the park registry. Code is the
// registry's stable identifier and the upsert key.
type Park struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	States       string    `json:"states"`
	Description  string    `json:"description"`
	URL          string    `json:"url"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both coordinates are known.
func (p *Park) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Trail is a catalog trail. ExternalID is the idempotency key used by the
// catalog sync.
type Trail struct {
	ID            uuid.UUID  `json:"id"`
	ExternalID    string     `json:"external_id"`
	ParkID        *uuid.UUID `json:"park_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	Difficulty    Difficulty `json:"difficulty"`
	LengthMiles   float64    `json:"length_miles"`
	ElevationGain *int       `json:"elevation_gain"`
	TrailType     string     `json:"trail_type"`
	ImageURL      string     `json:"image_url"`
	IsActive      bool       `json:"is_active"`
	Raw           []byte     `json:"-"` // source payload, stored as JSONB
	LastSyncedAt  time.Time  `json:"last_synced_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	AverageRating *float64 `json:"average_rating,omitempty"`
	ReviewCount   int      `json:"review_count"`
	Tags          []string `json:"tags,omitempty"`
}

// Tag labels trails ("waterfall", "dog friendly").
type Tag struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	TrailCount int       `json:"trail_count"`
}

// TrailFilter narrows trail listings.
type TrailFilter struct {
	ParkCode   string
	Difficulty Difficulty
	Query      string
	Tag        string
	Limit      int
	Offset     int
}

// SyncRun records the outcome of one per-state catalog sync.
type SyncRun struct {
	ID            int64     `json:"id"`
	State         string    `json:"state"`
	ParksCreated  int       `json:"parks_created"`
	ParksUpdated  int       `json:"parks_updated"`
	TrailsCreated int       `json:"trails_created"`
	TrailsUpdated int       `json:"trails_updated"`
	ErrorCount    int       `json:"error_count"`
	Warnings      []string  `json:"warnings"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

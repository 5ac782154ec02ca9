// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"trailhub/internal/models"
	"trailhub/internal/tracking"
)

// Tracking groups hike log and GPS track handlers. Every route acts on the
// signed-in user's own records.
type Tracking struct {
	svc *tracking.Service
}

// NewTracking creates a new Tracking handler group.
func NewTracking(svc *tracking.Service) *Tracking {
	return &Tracking{svc: svc}
}

type startHikeRequest struct {
	TrailID   *uuid.UUID `json:"trail_id"`
	StartedAt time.Time  `json:"started_at"`
}

// StartHike begins a hike. An omitted started_at means now.
func (t *Tracking) StartHike(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var req startHikeRequest
	if err := decode(w, r, "hike.start", &req); err != nil {
		writeError(w, r, err)
		return
	}
	hike, err := t.svc.StartHike(r.Context(), act, req.TrailID, req.StartedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, hike)
}

// Hikes lists the actor's hikes. ?completed=true|false and ?trail= filter.
func (t *Tracking) Hikes(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	var completed *bool
	switch r.URL.Query().Get("completed") {
	case "true":
		v := true
		completed = &v
	case "false":
		v := false
		completed = &v
	}
	trailID, err := queryUUID(r, "trail")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hikes, err := t.svc.ListHikes(r.Context(), act, completed, trailID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hikes)
}

// ActiveHikes lists hikes still in progress.
func (t *Tracking) ActiveHikes(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	hikes, err := t.svc.ActiveHikes(r.Context(), act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hikes)
}

// Stats returns totals over the actor's hikes.
func (t *Tracking) Stats(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	stats, err := t.svc.Stats(r.Context(), act)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Hike returns one hike.
func (t *Tracking) Hike(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hike, err := t.svc.GetHike(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hike)
}

type completeHikeRequest struct {
	EndedAt       time.Time `json:"ended_at"`
	DistanceMiles *float64  `json:"distance_miles" validate:"omitempty,gte=0"`
	Notes         string    `json:"notes" validate:"max=5000"`
	Weather       string    `json:"weather" validate:"max=100"`
}

// CompleteHike ends a hike. Completing twice is rejected.
func (t *Tracking) CompleteHike(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req completeHikeRequest
	if err := decode(w, r, "hike.complete", &req); err != nil {
		writeError(w, r, err)
		return
	}
	hike, err := t.svc.CompleteHike(r.Context(), act, id, tracking.Completion{
		EndedAt:       req.EndedAt,
		DistanceMiles: req.DistanceMiles,
		Notes:         req.Notes,
		Weather:       req.Weather,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hike)
}

// DeleteHike removes a hike with its tracks.
func (t *Tracking) DeleteHike(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := t.svc.DeleteHike(r.Context(), act, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartTrack opens a GPS track on one of the actor's hikes.
func (t *Tracking) StartTrack(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	hikeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	track, err := t.svc.StartTrack(r.Context(), act, hikeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

// Track returns one track.
func (t *Tracking) Track(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	track, err := t.svc.GetTrack(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

type pointRequest struct {
	Latitude   float64   `json:"latitude" validate:"latitude"`
	Longitude  float64   `json:"longitude" validate:"longitude"`
	Altitude   *float64  `json:"altitude"`
	Accuracy   *float64  `json:"accuracy" validate:"omitempty,gte=0"`
	Speed      *float64  `json:"speed" validate:"omitempty,gte=0"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AddPoint appends a position to an open track.
func (t *Tracking) AddPoint(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req pointRequest
	if err := decode(w, r, "track.add_point", &req); err != nil {
		writeError(w, r, err)
		return
	}
	point, err := t.svc.AddPoint(r.Context(), act, id, models.GPSPoint{
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Altitude:   req.Altitude,
		Accuracy:   req.Accuracy,
		Speed:      req.Speed,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

// Points lists a track's points in recorded order.
func (t *Tracking) Points(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := t.svc.Points(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// StopTrack closes a track and records its distance.
func (t *Tracking) StopTrack(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	track, err := t.svc.StopTrack(r.Context(), act, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

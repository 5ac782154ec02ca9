// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog merges the park registry and the geo-trail source into
// the local park and trail catalog. Syncs are idempotent: parks upsert by
// code and trails by external id, so re-running with unchanged upstream
// data creates nothing new.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"trailhub/internal/metrics"
	"trailhub/internal/models"
)

// Test mode syncs a tiny fixed subset.
const (
	TestModeState = "MN"
	TestModeLimit = 2
)

// Defaults applied by NewSyncer when Options leaves a field zero.
const (
	DefaultPause       = 2 * time.Second
	DefaultRadiusMiles = 15
)

// AllStates is every state code synced by a full run.
var AllStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// Store writes catalog rows. created reports whether the upsert inserted.
type Store interface {
	UpsertPark(ctx context.Context, p *models.Park) (id uuid.UUID, created bool, err error)
	UpsertTrail(ctx context.Context, t *models.Trail) (id uuid.UUID, created bool, err error)
}

// RunRecorder persists one row per finished state sync.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.SyncRun) error
}

// CacheInvalidator drops cached catalog reads.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Options tunes a Syncer. Runs and Cache are optional. A negative Pause
// disables the pause between states.
type Options struct {
	Pause       time.Duration
	RadiusMiles int
	Runs        RunRecorder
	Cache       CacheInvalidator
	Logger      *slog.Logger
}

// SyncReport summarizes one state sync. Errors are per-park or per-trail
// failures; Warnings are conditions that skipped work without failing it.
type SyncReport struct {
	State         string    `json:"state"`
	ParksCreated  int       `json:"parks_created"`
	ParksUpdated  int       `json:"parks_updated"`
	TrailsCreated int       `json:"trails_created"`
	TrailsUpdated int       `json:"trails_updated"`
	Errors        []string  `json:"errors"`
	Warnings      []string  `json:"warnings"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Summary renders the report on one line.
func (r SyncReport) Summary() string {
	return fmt.Sprintf("%s: parks [created %d, updated %d] | trails [created %d, updated %d] | errors %d | warnings %d",
		r.State, r.ParksCreated, r.ParksUpdated, r.TrailsCreated, r.TrailsUpdated, len(r.Errors), len(r.Warnings))
}

func (r *SyncReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *SyncReport) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Syncer pulls parks and nearby trails into the catalog.
type Syncer struct {
	parks  ParkSource
	trails TrailSource
	store  Store
	runs   RunRecorder
	cache  CacheInvalidator
	logger *slog.Logger
	pause  time.Duration
	radius int
}

// NewSyncer creates a Syncer.
func NewSyncer(parks ParkSource, trails TrailSource, store Store, opts Options) *Syncer {
	if opts.Pause < 0 {
		opts.Pause = 0
	} else if opts.Pause == 0 {
		opts.Pause = DefaultPause
	}
	if opts.RadiusMiles <= 0 {
		opts.RadiusMiles = DefaultRadiusMiles
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Syncer{
		parks:  parks,
		trails: trails,
		store:  store,
		runs:   opts.Runs,
		cache:  opts.Cache,
		logger: opts.Logger,
		pause:  opts.Pause,
		radius: opts.RadiusMiles,
	}
}

// SyncState syncs the parks of one state and the trails around them.
// limit > 0 caps the number of parks. It never returns an error: fetch
// failures become warnings and item failures become errors in the report.
func (s *Syncer) SyncState(ctx context.Context, stateCode string, limit int) (report SyncReport) {
	report = SyncReport{
		State:     strings.ToUpper(strings.TrimSpace(stateCode)),
		Errors:    []string{},
		Warnings:  []string{},
		StartedAt: time.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			report.errorf("sync %s aborted: %v", report.State, r)
			s.logger.Error("catalog sync panic", "state", report.State, "panic", r)
		}
		s.finish(ctx, &report)
	}()

	parks, err := s.parks.ParksByState(ctx, report.State, limit)
	if err != nil {
		report.warnf("park registry unavailable for %s: %v", report.State, err)
		return report
	}
	if len(parks) == 0 {
		report.warnf("no parks found for %s", report.State)
		return report
	}
	if limit > 0 && len(parks) > limit {
		parks = parks[:limit]
	}

	for _, p := range parks {
		if err := ctx.Err(); err != nil {
			report.warnf("sync %s interrupted: %v", report.State, err)
			break
		}
		if strings.TrimSpace(p.Code) == "" {
			report.warnf("skipping park with no code (%q)", p.Name)
			continue
		}
		s.syncPark(ctx, report.State, p, &report)
	}
	return report
}

func (s *Syncer) syncPark(ctx context.Context, state string, rec ParkRecord, report *SyncReport) {
	park := &models.Park{
		Code:        strings.TrimSpace(rec.Code),
		Name:        Truncate(orDefault(rec.Name, "Unknown Park"), MaxParkName),
		States:      Truncate(orDefault(rec.States, state), MaxParkStates),
		Description: Truncate(rec.Description, MaxParkDescription),
		URL:         Truncate(rec.URL, MaxURL),
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
	}

	id, created, err := s.store.UpsertPark(ctx, park)
	if err != nil {
		metrics.RecordCatalogItem("park", "error")
		report.errorf("park %s: %v", park.Code, err)
		s.logger.Warn("catalog park upsert failed", "code", park.Code, "error", err)
		return
	}
	park.ID = id
	if created {
		report.ParksCreated++
		metrics.RecordCatalogItem("park", "created")
	} else {
		report.ParksUpdated++
		metrics.RecordCatalogItem("park", "updated")
	}

	if !park.HasCoordinates() {
		s.logger.Debug("park has no coordinates, skipping trails", "code", park.Code)
		return
	}

	trails, err := s.trails.TrailsNear(ctx, *park.Latitude, *park.Longitude, s.radius)
	if err != nil {
		report.errorf("trails near park %s: %v", park.Code, err)
		s.logger.Warn("catalog trail fetch failed", "code", park.Code, "error", err)
		return
	}
	for _, t := range trails {
		s.syncTrail(ctx, park, t, report)
	}
}

func (s *Syncer) syncTrail(ctx context.Context, park *models.Park, rec TrailRecord, report *SyncReport) {
	trail := BuildTrail(park, rec)

	_, created, err := s.store.UpsertTrail(ctx, trail)
	if err != nil {
		metrics.RecordCatalogItem("trail", "error")
		report.errorf("trail %s: %v", trail.ExternalID, err)
		s.logger.Warn("catalog trail upsert failed", "external_id", trail.ExternalID, "error", err)
		return
	}
	if created {
		report.TrailsCreated++
		metrics.RecordCatalogItem("trail", "created")
	} else {
		report.TrailsUpdated++
		metrics.RecordCatalogItem("trail", "updated")
	}
}

// BuildTrail normalizes a source record into a catalog trail of park.
func BuildTrail(park *models.Park, rec TrailRecord) *models.Trail {
	raw := rec.Raw
	if len(raw) == 0 || !json.Valid(raw) {
		raw = []byte(`{}`)
	}
	parkID := park.ID
	return &models.Trail{
		ExternalID:    ExternalTrailID(park.Code, rec.ID, rec.Name),
		ParkID:        &parkID,
		Name:          Truncate(orDefault(rec.Name, "Unnamed Trail"), MaxTrailName),
		Description:   Truncate(rec.Description, MaxTrailDescription),
		Location:      Truncate(orDefault(rec.Location, park.States), MaxTrailLocation),
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		Difficulty:    NormalizeDifficulty(rec.Difficulty),
		LengthMiles:   CoerceLength(rec.Length),
		ElevationGain: CoerceElevation(rec.ElevationGain),
		TrailType:     Truncate(rec.TrailType, MaxTrailType),
		ImageURL:      Truncate(rec.ImageURL, MaxURL),
		IsActive:      true,
		Raw:           raw,
	}
}

func (s *Syncer) finish(ctx context.Context, report *SyncReport) {
	report.FinishedAt = time.Now()
	metrics.CatalogSyncDuration.WithLabelValues(report.State).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	// Record and invalidate even when the sync context was cancelled.
	bg := context.WithoutCancel(ctx)
	if s.runs != nil {
		err := s.runs.RecordRun(bg, &models.SyncRun{
			State:         report.State,
			ParksCreated:  report.ParksCreated,
			ParksUpdated:  report.ParksUpdated,
			TrailsCreated: report.TrailsCreated,
			TrailsUpdated: report.TrailsUpdated,
			ErrorCount:    len(report.Errors),
			Warnings:      report.Warnings,
			StartedAt:     report.StartedAt,
			FinishedAt:    report.FinishedAt,
		})
		if err != nil {
			s.logger.Warn("failed to record sync run", "state", report.State, "error", err)
		}
	}
	if s.cache != nil && report.ParksCreated+report.ParksUpdated+report.TrailsCreated+report.TrailsUpdated > 0 {
		s.cache.InvalidateAll(bg)
	}

	s.logger.Info("catalog state synced",
		"state", report.State,
		"parks_created", report.ParksCreated,
		"parks_updated", report.ParksUpdated,
		"trails_created", report.TrailsCreated,
		"trails_updated", report.TrailsUpdated,
		"errors", len(report.Errors),
		"warnings", len(report.Warnings),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
}

// SyncAll syncs each state in order with a fixed pause between states.
// A failing state never stops the next one; cancelling ctx stops the run
// and returns the reports finished so far.
func (s *Syncer) SyncAll(ctx context.Context, states []string, limit int) []SyncReport {
	reports := make([]SyncReport, 0, len(states))
	for i, st := range states {
		if i > 0 && s.pause > 0 {
			timer := time.NewTimer(s.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return reports
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return reports
		}
		reports = append(reports, s.SyncState(ctx, st, limit))
	}
	return reports
}

// SyncTestMode syncs the fixed test subset.
func (s *Syncer) SyncTestMode(ctx context.Context) SyncReport {
	return s.SyncState(ctx, TestModeState, TestModeLimit)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

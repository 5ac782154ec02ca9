// sync_run.go records one audit row per catalog state sync so operators
// can see what each run created, updated and skipped.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"trailhub/internal/models"
)

// SyncRunStore handles catalog sync audit rows.
type SyncRunStore struct {
	db *sql.DB
}

// NewSyncRunStore creates a new SyncRunStore.
func NewSyncRunStore(db *sql.DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

// RecordRun inserts a finished run and sets its ID.
func (s *SyncRunStore) RecordRun(ctx context.Context, run *models.SyncRun) error {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	payload, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode sync warnings: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO sync_runs (state, parks_created, parks_updated, trails_created, trails_updated,
		                       error_count, warnings, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		RETURNING id
	`, run.State, run.ParksCreated, run.ParksUpdated, run.TrailsCreated, run.TrailsUpdated,
		run.ErrorCount, string(payload), run.StartedAt, run.FinishedAt).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	slog.Debug("sync run recorded", "id", run.ID, "state", run.State)
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *SyncRunStore) RecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, parks_created, parks_updated, trails_created, trails_updated,
		       error_count, warnings, started_at, finished_at
		FROM sync_runs
		ORDER BY finished_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		var warnings []byte
		if err := rows.Scan(&r.ID, &r.State, &r.ParksCreated, &r.ParksUpdated, &r.TrailsCreated,
			&r.TrailsUpdated, &r.ErrorCount, &warnings, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		if err := json.Unmarshal(warnings, &r.Warnings); err != nil {
			return nil, fmt.Errorf("decode sync warnings: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
)

func TestHikeLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewTrackingStore(db)
	u := testUser(t, db)
	_, trailID := testTrail(t, db)

	start := time.Now().Add(-2 * time.Hour)
	h, err := s.CreateHike(ctx, u.ID, &trailID, start)
	if err != nil {
		t.Fatalf("CreateHike: %v", err)
	}
	if _, err := s.CreateHike(ctx, u.ID, nil, start); err != nil {
		t.Fatalf("CreateHike without trail: %v", err)
	}

	end := start.Add(90 * time.Minute)
	dur, dist := 90, 4.5
	h.EndedAt, h.DurationMin, h.DistanceMiles = &end, &dur, &dist
	done, err := s.CompleteHike(ctx, h)
	if err != nil || done == nil || !done.Completed {
		t.Fatalf("CompleteHike: %+v, %v", done, err)
	}
	again, err := s.CompleteHike(ctx, h)
	if err != nil || again != nil {
		t.Fatalf("second CompleteHike should match nothing: %+v, %v", again, err)
	}

	completed := true
	list, err := s.ListHikes(ctx, u.ID, &completed, nil)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListHikes completed: %d, %v", len(list), err)
	}
	all, _ := s.ListHikes(ctx, u.ID, nil, nil)
	if len(all) != 2 {
		t.Errorf("ListHikes all: got %d", len(all))
	}

	st, err := s.HikeStats(ctx, u.ID)
	if err != nil {
		t.Fatalf("HikeStats: %v", err)
	}
	if st.TotalHikes != 1 || st.ActiveHikes != 1 || st.TotalDistance != 4.5 || st.TotalHours != 1.5 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestTrackPoints(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewTrackingStore(db)
	u := testUser(t, db)

	h, err := s.CreateHike(ctx, u.ID, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := s.CreateTrack(ctx, h.ID, u.ID)
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	for i := range 3 {
		p, err := s.AddPoint(ctx, &models.GPSPoint{
			TrackID: tr.ID, Latitude: 47.0 + float64(i)*0.01, Longitude: -92.0, RecordedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("AddPoint %d: %v", i, err)
		}
		if p.PointOrder != i+1 {
			t.Errorf("point order: got %d, want %d", p.PointOrder, i+1)
		}
	}

	points, err := s.Points(ctx, tr.ID)
	if err != nil || len(points) != 3 {
		t.Fatalf("Points: %d, %v", len(points), err)
	}

	stopped, err := s.StopTrack(ctx, tr.ID, pointCount)
	if err != nil || stopped == nil || !stopped.Stopped() || stopped.PointCount != 3 || stopped.TotalDistance != 3 {
		t.Fatalf("StopTrack: %+v, %v", stopped, err)
	}
	if again, _ := s.StopTrack(ctx, tr.ID, pointCount); again != nil {
		t.Error("second StopTrack should match nothing")
	}
	_, err = s.AddPoint(ctx, &models.GPSPoint{TrackID: tr.ID, Latitude: 1, Longitude: 1, RecordedAt: time.Now()})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("point after stop: expected ErrValidation, got %v", err)
	}
}

// pointCount stands in for a path distance: one mile per recorded point.
func pointCount(points []models.GPSPoint) float64 {
	return float64(len(points))
}

func TestStopTrackSeesEveryPoint(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewTrackingStore(db)
	u := testUser(t, db)

	h, err := s.CreateHike(ctx, u.ID, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := s.CreateTrack(ctx, h.ID, u.ID)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 20
	var (
		wg      sync.WaitGroup
		stopped *models.GPSTrack
		stopErr error
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddPoint(ctx, &models.GPSPoint{
				TrackID: tr.ID, Latitude: 46 + float64(i)*0.001, Longitude: -91, RecordedAt: time.Now(),
			})
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("AddPoint: %v", err)
			}
		}()
		if i == writers/2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				stopped, stopErr = s.StopTrack(ctx, tr.ID, pointCount)
			}()
		}
	}
	wg.Wait()

	if stopErr != nil || stopped == nil {
		t.Fatalf("StopTrack: %+v, %v", stopped, stopErr)
	}
	points, err := s.Points(ctx, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stopped.TotalDistance != float64(len(points)) || stopped.PointCount != len(points) {
		t.Errorf("stop saw %v points (count %d), track holds %d", stopped.TotalDistance, stopped.PointCount, len(points))
	}
}

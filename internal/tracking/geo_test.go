package tracking

import (
	"math"
	"testing"

	"trailhub/internal/models"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tol                    float64
	}{
		{"same point", 44.0, -110.0, 44.0, -110.0, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 69.09, 0.05},
		{"denver to boulder", 39.7392, -104.9903, 40.01499, -105.27055, 24.1, 0.5},
		{"antipodes", 0, 0, 0, 180, math.Pi * EarthRadiusMiles, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Haversine = %.4f, want %.4f ± %.4f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestPathDistance(t *testing.T) {
	if d := PathDistance(nil); d != 0 {
		t.Errorf("empty path = %v", d)
	}
	if d := PathDistance([]models.GPSPoint{{Latitude: 1, Longitude: 1}}); d != 0 {
		t.Errorf("single point = %v", d)
	}

	pts := []models.GPSPoint{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 0},
		{Latitude: 2, Longitude: 0},
	}
	want := 2 * Haversine(0, 0, 1, 0)
	if d := PathDistance(pts); math.Abs(d-want) > 1e-9 {
		t.Errorf("PathDistance = %v, want %v", d, want)
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := ValidCoordinate(tt.lat, tt.lon); got != tt.want {
			t.Errorf("ValidCoordinate(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

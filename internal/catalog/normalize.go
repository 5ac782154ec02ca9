package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"trailhub/internal/models"
	"trailhub/internal/slug"
)

// Field limits for catalog rows, in runes.
const (
	MaxParkDescription  = 500
	MaxParkName         = 200
	MaxParkStates       = 100
	MaxURL              = 500
	MaxTrailName        = 200
	MaxTrailDescription = 500
	MaxTrailLocation    = 200
	MaxTrailType        = 50
	MaxExternalID       = 100
	maxNamePart         = 50
)

var difficultyTable = map[string]models.Difficulty{
	"EASY":                 models.DifficultyEasy,
	"EASIEST":              models.DifficultyEasy,
	"MODERATE":             models.DifficultyModerate,
	"MODERATELY STRENUOUS": models.DifficultyModerate,
	"STRENUOUS":            models.DifficultyModerate,
	"DIFFICULT":            models.DifficultyHard,
	"VERY DIFFICULT":       models.DifficultyHard,
	"VERY STRENUOUS":       models.DifficultyExpert,
	"EXTREMELY DIFFICULT":  models.DifficultyExpert,
}

// NormalizeDifficulty maps a source difficulty label onto the fixed
// enumeration. Unknown or empty labels become moderate.
func NormalizeDifficulty(label string) models.Difficulty {
	if d, ok := difficultyTable[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return d
	}
	return models.DifficultyModerate
}

// CoerceLength converts a decoded length value to miles. Anything that is
// not a finite non-negative number yields 0.
func CoerceLength(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// CoerceElevation converts a decoded elevation gain to whole feet. Values
// that do not parse as integers, and zero, yield nil.
func CoerceElevation(v any) *int {
	var n int
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return nil
			}
			i = int64(f)
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		n = i
	default:
		return nil
	}
	if n == 0 {
		return nil
	}
	return &n
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// ExternalTrailID returns the upsert key for a trail: the source id when
// present, otherwise the park code joined with the sanitized name.
func ExternalTrailID(parkCode, sourceID, name string) string {
	if id := strings.TrimSpace(sourceID); id != "" {
		return Truncate(id, MaxExternalID)
	}
	return Truncate(parkCode+"_"+slug.Identifier(name, maxNamePart), MaxExternalID)
}

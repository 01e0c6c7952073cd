package catalog

import "time"

// EclipseType classifies an eclipse record.
type EclipseType string

const (
	TypeTotal   EclipseType = "total"
	TypeAnnular EclipseType = "annular"
	TypePartial EclipseType = "partial"
)

// PathPoint is one vertex of an eclipse centerline polyline. Points are not
// uniformly spaced along the arc.
type PathPoint struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	DurationSeconds float64 `json:"duration"`
	LocationName    string  `json:"location,omitempty"`
}

// Record is a single eclipse. Records are loaded once from static data and
// are read-only thereafter; they may be shared by reference across any number
// of solver calls.
type Record struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Date               time.Time   `json:"date"`
	Type               EclipseType `json:"type"`
	Magnitude          float64     `json:"magnitude"`
	PathWidthKm        float64     `json:"path_width_km"`
	MaxDurationSeconds float64     `json:"max_duration_seconds"`
	Path               []PathPoint `json:"path"`
}

// Visibility classifies an eclipse as seen from a specific observer location.
type Visibility string

const (
	VisibilityTotal   Visibility = "total"
	VisibilityPartial Visibility = "partial"
	VisibilityNone    Visibility = "none"
)

// Classification is the result of ClassifyForObserver: how much of the
// eclipse an observer at a given coordinate will see.
//
// Coverage for partial observers is scaled linearly with distance from the
// centerline and the eclipse magnitude. This is a field-guidance
// approximation, not a geometric umbra projection.
type Classification struct {
	Type                    Visibility `json:"type"`
	CoveragePercent         float64    `json:"coverage_percent"`
	DistanceKm              float64    `json:"distance_km"`
	TotalityDurationSeconds float64    `json:"totality_duration_seconds,omitempty"`
	Magnitude               float64    `json:"magnitude"`
}

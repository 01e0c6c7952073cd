package astro

import (
	"math"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

// refractionAltDeg is the apparent altitude of the solar center at rise/set,
// accounting for atmospheric refraction and the solar disk radius.
const refractionAltDeg = -0.833

// DayEvents holds sunrise, sunset and day length for one date and location.
// Sunrise/Sunset are zero and PolarDay/PolarNight set when the Sun never
// crosses the horizon.
type DayEvents struct {
	Sunrise          time.Time `json:"sunrise"`
	Sunset           time.Time `json:"sunset"`
	DayLengthSeconds float64   `json:"day_length_seconds"`
	PolarDay         bool      `json:"polar_day,omitempty"`
	PolarNight       bool      `json:"polar_night,omitempty"`
}

// Culmination is the instant and altitude of the Sun's daily maximum.
type Culmination struct {
	Time        time.Time `json:"time"`
	AltitudeDeg float64   `json:"altitude_deg"`
}

// SunriseSunset computes rise and set times for the calendar date of t (UTC)
// at the given coordinate, using the -0.833 degree apparent-altitude
// correction. Returns polar-day/polar-night sentinels when the hour-angle
// cosine falls outside [-1, 1].
func SunriseSunset(t time.Time, c geo.Coordinate) DayEvents {
	t = t.UTC()
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)

	dec := sunEphemerisAt(noon).declinationRad
	latRad := c.Latitude * degToRad
	h0 := refractionAltDeg * degToRad

	cosH := (math.Sin(h0) - math.Sin(latRad)*math.Sin(dec)) /
		(math.Cos(latRad) * math.Cos(dec))

	if cosH > 1 {
		return DayEvents{PolarNight: true}
	}
	if cosH < -1 {
		return DayEvents{PolarDay: true, DayLengthSeconds: 24 * 3600}
	}

	// Half the daylight arc, in hours.
	h0Hours := math.Acos(cosH) * radToDeg / 15.0

	riseHour := 12 - h0Hours - c.Longitude/15.0
	setHour := 12 + h0Hours - c.Longitude/15.0

	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	sunrise := day.Add(time.Duration(riseHour * float64(time.Hour)))
	sunset := day.Add(time.Duration(setHour * float64(time.Hour)))

	return DayEvents{
		Sunrise:          sunrise,
		Sunset:           sunset,
		DayLengthSeconds: sunset.Sub(sunrise).Seconds(),
	}
}

const (
	coarseWindow = 2 * time.Hour
	coarseStep   = 5 * time.Minute
	fineStep     = 1 * time.Minute
)

// CulminationAt finds the Sun's maximum altitude for the calendar date of t
// at the given coordinate. Bounded two-stage hill climb: coarse 5-minute scan
// over a ±2 hour window around longitude-estimated local noon, then 1-minute
// refinement over a 10-minute window centered on the coarse maximum.
// Deterministic and cheap; no closed-form solution is attempted.
func CulminationAt(t time.Time, c geo.Coordinate) Culmination {
	t = t.UTC()
	// Local apparent noon estimate from longitude alone.
	estimate := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC).
		Add(-time.Duration(c.Longitude / 15.0 * float64(time.Hour)))

	best := estimate
	maxAlt := -90.0

	for off := -coarseWindow; off <= coarseWindow; off += coarseStep {
		probe := estimate.Add(off)
		if alt := SunPositionAt(probe, c).AltitudeDeg; alt > maxAlt {
			maxAlt = alt
			best = probe
		}
	}

	refineStart := best.Add(-5 * time.Minute)
	for off := time.Duration(0); off <= 10*time.Minute; off += fineStep {
		probe := refineStart.Add(off)
		if alt := SunPositionAt(probe, c).AltitudeDeg; alt > maxAlt {
			maxAlt = alt
			best = probe
		}
	}

	return Culmination{Time: best, AltitudeDeg: maxAlt}
}

// PoleStar identifies the reference star for polar alignment.
type PoleStar struct {
	Name           string  `json:"name"`
	RightAscHours  float64 `json:"right_ascension_hours"`
	DeclinationDeg float64 `json:"declination_deg"`
}

// PolarAlignment holds mount polar-axis pointing for an observer.
// The polar axis altitude equals the absolute latitude; azimuth is 0 (North)
// in the northern hemisphere and 180 (South) in the southern.
type PolarAlignment struct {
	Hemisphere  string   `json:"hemisphere"` // "north" or "south"
	AltitudeDeg float64  `json:"altitude_deg"`
	AzimuthDeg  float64  `json:"azimuth_deg"`
	Star        PoleStar `json:"pole_star"`
}

var (
	polaris       = PoleStar{Name: "Polaris", RightAscHours: 2.530, DeclinationDeg: 89.264}
	sigmaOctantis = PoleStar{Name: "Sigma Octantis", RightAscHours: 21.079, DeclinationDeg: -88.957}
)

// PolarAlignmentFor returns the mount polar-axis geometry for a coordinate.
func PolarAlignmentFor(c geo.Coordinate) PolarAlignment {
	if c.Latitude >= 0 {
		return PolarAlignment{
			Hemisphere:  "north",
			AltitudeDeg: c.Latitude,
			AzimuthDeg:  0,
			Star:        polaris,
		}
	}
	return PolarAlignment{
		Hemisphere:  "south",
		AltitudeDeg: -c.Latitude,
		AzimuthDeg:  180,
		Star:        sigmaOctantis,
	}
}

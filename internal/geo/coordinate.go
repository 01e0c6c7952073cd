// Package geo holds the observer coordinate value type and the shared
// great-circle distance primitive used by the catalog and the contact solver.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("coordinate out of range")

// Coordinate is an immutable observer location.
// Latitude in [-90, 90] degrees, longitude in [-180, 180] degrees,
// altitude in meters above sea level (optional, zero when unknown).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m,omitempty"`
}

// NewCoordinate validates and constructs a Coordinate.
// Out-of-range values are rejected, never clamped.
func NewCoordinate(latDeg, lonDeg, altM float64) (Coordinate, error) {
	c := Coordinate{Latitude: latDeg, Longitude: lonDeg, AltitudeM: altM}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks latitude/longitude ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.4f not in [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.4f not in [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// HaversineKm computes the great-circle distance in kilometers between two
// points given in degrees. This is the single distance primitive shared by
// every component; do not reimplement it per call site.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// DistanceKm returns the great-circle distance between two coordinates.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	return HaversineKm(c.Latitude, c.Longitude, other.Latitude, other.Longitude)
}

// Package astro implements the low-precision solar ephemeris used by the
// eclipse engine: sun position, sunrise/sunset, culmination search, polar
// alignment and the equation of time.
//
// Method: mean solar longitude plus a two-term equation-of-center correction,
// linear obliquity drift, and a GMST approximation, then spherical trigonometry
// to horizontal coordinates. Accuracy is on the order of 0.01 degrees, which is
// sufficient for field guidance. This is not a JPL-grade ephemeris and the
// tests deliberately do not assert sub-arcsecond agreement.
package astro

import (
	"math"
	"time"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

const degToRad = math.Pi / 180.0
const radToDeg = 180.0 / math.Pi

// JulianDate converts a time.Time to Julian Date using the standard
// Gregorian-calendar JDN formula.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year := t.Year()
	month := int(t.Month())
	day := t.Day()
	hour := float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0

	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3

	jdn := day +
		(153*m+2)/5 +
		365*y +
		y/4 -
		y/100 +
		y/400 -
		32045

	return float64(jdn) + (hour-12)/24.0
}

// GMSTDegrees returns the Greenwich Mean Sidereal Time in degrees, normalized
// to [0, 360), for the given UTC instant. Low-precision linear approximation
// matched to the rest of the ephemeris; agrees with the IAU-82 model to well
// under 0.01 degrees over the decades this tool cares about.
func GMSTDegrees(t time.Time) float64 {
	n := JulianDate(t) - J2000
	return normalizeDeg(280.460 + 360.9856474*n)
}

// normalizeDeg wraps an angle into [0, 360).
func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// normalizeHourAngle wraps an hour angle into (-180, 180].
func normalizeHourAngle(deg float64) float64 {
	for deg < -180 {
		deg += 360
	}
	for deg > 180 {
		deg -= 360
	}
	return deg
}

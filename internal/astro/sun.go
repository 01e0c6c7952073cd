package astro

import (
	"math"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

// SunPosition holds the horizontal and equatorial coordinates of the Sun for
// one (instant, coordinate) pair. All angles are in degrees.
type SunPosition struct {
	AltitudeDeg       float64 `json:"altitude_deg"`        // -90..90
	AzimuthDeg        float64 `json:"azimuth_deg"`         // 0 = North, clockwise, [0, 360)
	HourAngleDeg      float64 `json:"hour_angle_deg"`      // (-180, 180]
	DeclinationDeg    float64 `json:"declination_deg"`     // -90..90
	RightAscensionDeg float64 `json:"right_ascension_deg"` // [0, 360)
	IsVisible         bool    `json:"is_visible"`          // altitude > 0
}

// solarEphemeris holds intermediate equatorial quantities shared by
// SunPositionAt and the sunrise/sunset calculation.
type solarEphemeris struct {
	declinationRad float64
	rightAscDeg    float64
}

// sunEphemerisAt computes solar declination and right ascension for an instant.
// Mean longitude plus two Fourier terms of the equation of center, obliquity
// with linear drift.
func sunEphemerisAt(t time.Time) solarEphemeris {
	n := JulianDate(t) - J2000

	// Mean longitude and mean anomaly of the Sun.
	meanLon := normalizeDeg(280.460 + 0.9856474*n)
	meanAnom := normalizeDeg(357.528+0.9856003*n) * degToRad

	// Ecliptic longitude with equation-of-center correction.
	eclLon := normalizeDeg(meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom))
	eclLonRad := eclLon * degToRad

	// Obliquity of the ecliptic, linear drift.
	obliquityRad := (23.439 - 0.0000004*n) * degToRad

	decRad := math.Asin(math.Sin(obliquityRad) * math.Sin(eclLonRad))
	raRad := math.Atan2(math.Cos(obliquityRad)*math.Sin(eclLonRad), math.Cos(eclLonRad))

	return solarEphemeris{
		declinationRad: decRad,
		rightAscDeg:    normalizeDeg(raRad * radToDeg),
	}
}

// SunPositionAt computes the Sun's position for an instant and an observer
// coordinate. Pure function: identical inputs always yield identical output.
func SunPositionAt(t time.Time, c geo.Coordinate) SunPosition {
	eph := sunEphemerisAt(t)

	// Local sidereal time and hour angle.
	lst := normalizeDeg(GMSTDegrees(t) + c.Longitude)
	haDeg := normalizeHourAngle(lst - eph.rightAscDeg)
	haRad := haDeg * degToRad

	latRad := c.Latitude * degToRad
	sinDec := math.Sin(eph.declinationRad)
	cosDec := math.Cos(eph.declinationRad)

	// Altitude.
	sinAlt := math.Sin(latRad)*sinDec + math.Cos(latRad)*cosDec*math.Cos(haRad)
	altRad := math.Asin(sinAlt)
	altDeg := altRad * radToDeg

	// Azimuth from North through East.
	cosAlt := math.Cos(altRad)
	var azDeg float64
	if math.Abs(cosAlt) < 1e-12 {
		// Sun at zenith/nadir: azimuth undefined, report 0.
		azDeg = 0
	} else {
		sinAz := -cosDec * math.Sin(haRad) / cosAlt
		cosAz := (sinDec - math.Sin(latRad)*sinAlt) / (math.Cos(latRad) * cosAlt)
		azDeg = normalizeDeg(math.Atan2(sinAz, cosAz) * radToDeg)
	}

	return SunPosition{
		AltitudeDeg:       altDeg,
		AzimuthDeg:        azDeg,
		HourAngleDeg:      haDeg,
		DeclinationDeg:    eph.declinationRad * radToDeg,
		RightAscensionDeg: eph.rightAscDeg,
		IsVisible:         altDeg > 0,
	}
}

// EquationOfTimeMinutes returns the difference between apparent and mean solar
// time in minutes for the given date.
func EquationOfTimeMinutes(t time.Time) float64 {
	n := JulianDate(t) - J2000

	meanLon := normalizeDeg(280.460 + 0.9856474*n)
	meanAnom := normalizeDeg(357.528+0.9856003*n) * degToRad
	eclLonRad := (meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom)) * degToRad
	obliquityRad := (23.439 - 0.0000004*n) * degToRad

	raDeg := math.Atan2(math.Cos(obliquityRad)*math.Sin(eclLonRad), math.Cos(eclLonRad)) * radToDeg

	// 4 minutes of time per degree.
	eot := 4 * normalizeHourAngle(meanLon-normalizeDeg(raDeg))
	return eot
}

// SolarParallaxArcsec returns the solar horizontal parallax in arcseconds for
// an Earth-Sun distance in astronomical units.
func SolarParallaxArcsec(distanceAU float64) float64 {
	return 8.794 / distanceAU
}

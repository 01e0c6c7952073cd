package astro

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

var (
	tangier  = geo.Coordinate{Latitude: 35.7595, Longitude: -5.834}
	helsinki = geo.Coordinate{Latitude: 60.1699, Longitude: 24.9384}
)

func TestJulianDateKnownEpochs(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"J2000 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"start of 1999", time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), 2451179.5},
		{"eclipse day 2027", time.Date(2027, 8, 2, 0, 0, 0, 0, time.UTC), 2461624.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.t)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("JulianDate = %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

// Cross-validate the Julian Date against the SGP4 library's implementation.
func TestJulianDateMatchesSatelliteLibrary(t *testing.T) {
	instants := []time.Time{
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 8, 18, 17, 0, 0, time.UTC),
		time.Date(2027, 8, 2, 9, 44, 34, 0, time.UTC),
	}
	for _, at := range instants {
		ref := satellite.JDay(at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())
		got := JulianDate(at)
		if math.Abs(got-ref) > 1e-6 {
			t.Errorf("JulianDate(%v) = %.8f, go-satellite JDay = %.8f", at, got, ref)
		}
	}
}

// Cross-validate GMST against the library's IAU-82 sidereal time. The linear
// approximation should agree to a few hundredths of a degree — the documented
// precision ceiling of this ephemeris, not sub-arcsecond.
func TestGMSTMatchesIAU82(t *testing.T) {
	instants := []time.Time{
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 8, 18, 0, 0, 0, time.UTC),
		time.Date(2027, 8, 2, 10, 0, 0, 0, time.UTC),
	}
	for _, at := range instants {
		refRad := satellite.GSTimeFromDate(at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())
		refDeg := normalizeDeg(refRad * radToDeg)
		got := GMSTDegrees(at)

		diff := math.Abs(got - refDeg)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 0.05 {
			t.Errorf("GMSTDegrees(%v) = %.4f, IAU-82 = %.4f (diff %.4f deg)", at, got, refDeg, diff)
		}
	}
}

func TestSunPositionIdempotent(t *testing.T) {
	at := time.Date(2027, 8, 2, 10, 0, 0, 0, time.UTC)
	a := SunPositionAt(at, tangier)
	b := SunPositionAt(at, tangier)
	if a != b {
		t.Errorf("SunPositionAt not idempotent: %+v vs %+v", a, b)
	}
}

func TestSunPositionRangeInvariants(t *testing.T) {
	coords := []geo.Coordinate{
		{Latitude: 0, Longitude: 0},
		tangier,
		helsinki,
		{Latitude: -33.9, Longitude: 18.4},
		{Latitude: 78.2, Longitude: 15.6},
	}
	start := time.Date(2027, 8, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range coords {
		for h := 0; h < 48; h += 3 {
			at := start.Add(time.Duration(h) * time.Hour)
			pos := SunPositionAt(at, c)

			if pos.AzimuthDeg < 0 || pos.AzimuthDeg >= 360 {
				t.Errorf("azimuth %.3f out of [0, 360) at %v %v", pos.AzimuthDeg, at, c)
			}
			if pos.AltitudeDeg < -90 || pos.AltitudeDeg > 90 {
				t.Errorf("altitude %.3f out of [-90, 90] at %v %v", pos.AltitudeDeg, at, c)
			}
			if pos.IsVisible != (pos.AltitudeDeg > 0) {
				t.Errorf("IsVisible=%v inconsistent with altitude %.3f", pos.IsVisible, pos.AltitudeDeg)
			}
			if pos.HourAngleDeg <= -180 || pos.HourAngleDeg > 180 {
				t.Errorf("hour angle %.3f out of (-180, 180]", pos.HourAngleDeg)
			}
		}
	}
}

func TestSunDeclinationSeasons(t *testing.T) {
	// Near the June solstice the declination approaches +23.4, near the
	// December solstice -23.4, near the equinoxes zero.
	june := SunPositionAt(time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC), tangier)
	if math.Abs(june.DeclinationDeg-23.44) > 0.2 {
		t.Errorf("June solstice declination = %.2f, want ~23.44", june.DeclinationDeg)
	}

	dec := SunPositionAt(time.Date(2026, 12, 21, 12, 0, 0, 0, time.UTC), tangier)
	if math.Abs(dec.DeclinationDeg+23.44) > 0.2 {
		t.Errorf("December solstice declination = %.2f, want ~-23.44", dec.DeclinationDeg)
	}

	march := SunPositionAt(time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC), tangier)
	if math.Abs(march.DeclinationDeg) > 0.7 {
		t.Errorf("equinox declination = %.2f, want ~0", march.DeclinationDeg)
	}
}

func TestSunNearSouthAtLocalNoon(t *testing.T) {
	// Mid-northern observer: the Sun should be close to due south (az ~180)
	// at local apparent noon.
	cul := CulminationAt(time.Date(2027, 8, 2, 0, 0, 0, 0, time.UTC), tangier)
	pos := SunPositionAt(cul.Time, tangier)
	if math.Abs(pos.AzimuthDeg-180) > 5 {
		t.Errorf("azimuth at culmination = %.2f, want ~180", pos.AzimuthDeg)
	}
	if !pos.IsVisible {
		t.Error("sun should be above the horizon at culmination in August at 35N")
	}
}

func TestSunriseSunsetOrdering(t *testing.T) {
	ev := SunriseSunset(time.Date(2027, 8, 2, 0, 0, 0, 0, time.UTC), tangier)
	if ev.PolarDay || ev.PolarNight {
		t.Fatalf("unexpected polar sentinel: %+v", ev)
	}
	if !ev.Sunrise.Before(ev.Sunset) {
		t.Errorf("sunrise %v not before sunset %v", ev.Sunrise, ev.Sunset)
	}
	// Early August at 35N: day length roughly 13-14.5 hours.
	if ev.DayLengthSeconds < 12.5*3600 || ev.DayLengthSeconds > 15*3600 {
		t.Errorf("day length %.0fs implausible for Tangier in August", ev.DayLengthSeconds)
	}
}

func TestPolarNightAndDay(t *testing.T) {
	svalbard := geo.Coordinate{Latitude: 78.2, Longitude: 15.6}

	winter := SunriseSunset(time.Date(2026, 12, 21, 0, 0, 0, 0, time.UTC), svalbard)
	if !winter.PolarNight {
		t.Errorf("expected polar night at 78N in December, got %+v", winter)
	}
	if winter.DayLengthSeconds != 0 {
		t.Errorf("polar night day length = %.0f, want 0", winter.DayLengthSeconds)
	}

	summer := SunriseSunset(time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC), svalbard)
	if !summer.PolarDay {
		t.Errorf("expected polar day at 78N in June, got %+v", summer)
	}
	if summer.DayLengthSeconds != 24*3600 {
		t.Errorf("polar day length = %.0f, want 86400", summer.DayLengthSeconds)
	}
}

func TestCulminationAltitudeGeometry(t *testing.T) {
	// Maximum altitude for a northern observer is 90 - lat + dec.
	date := time.Date(2027, 8, 2, 0, 0, 0, 0, time.UTC)
	cul := CulminationAt(date, tangier)

	dec := SunPositionAt(cul.Time, tangier).DeclinationDeg
	want := 90 - tangier.Latitude + dec
	if math.Abs(cul.AltitudeDeg-want) > 0.5 {
		t.Errorf("culmination altitude = %.2f, want ~%.2f", cul.AltitudeDeg, want)
	}
}

func TestPolarAlignment(t *testing.T) {
	north := PolarAlignmentFor(tangier)
	if north.Hemisphere != "north" || north.AzimuthDeg != 0 {
		t.Errorf("unexpected northern alignment: %+v", north)
	}
	if math.Abs(north.AltitudeDeg-tangier.Latitude) > 1e-9 {
		t.Errorf("polar axis altitude = %.4f, want latitude %.4f", north.AltitudeDeg, tangier.Latitude)
	}
	if north.Star.Name != "Polaris" {
		t.Errorf("northern pole star = %q, want Polaris", north.Star.Name)
	}

	south := PolarAlignmentFor(geo.Coordinate{Latitude: -33.9, Longitude: 18.4})
	if south.Hemisphere != "south" || south.AzimuthDeg != 180 {
		t.Errorf("unexpected southern alignment: %+v", south)
	}
	if math.Abs(south.AltitudeDeg-33.9) > 1e-9 {
		t.Errorf("southern polar axis altitude = %.4f, want 33.9", south.AltitudeDeg)
	}
	if south.Star.Name != "Sigma Octantis" {
		t.Errorf("southern pole star = %q", south.Star.Name)
	}
}

func TestEquationOfTimeBounded(t *testing.T) {
	// The equation of time stays within about ±17 minutes year round.
	for day := 0; day < 365; day += 5 {
		at := time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day)
		eot := EquationOfTimeMinutes(at)
		if math.Abs(eot) > 17.5 {
			t.Errorf("equation of time %.2f min out of bounds on %v", eot, at)
		}
	}
}

func TestSolarParallax(t *testing.T) {
	if got := SolarParallaxArcsec(1.0); math.Abs(got-8.794) > 1e-9 {
		t.Errorf("parallax at 1 AU = %.4f, want 8.794", got)
	}
	if got := SolarParallaxArcsec(2.0); math.Abs(got-4.397) > 1e-9 {
		t.Errorf("parallax at 2 AU = %.4f, want 4.397", got)
	}
}

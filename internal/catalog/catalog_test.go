package catalog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

const fixtureJSON = `{
  "eclipses": [
    {
      "id": "2027-08-02",
      "name": "Total Solar Eclipse 2027",
      "date": "2027-08-02",
      "type": "total",
      "magnitude": 1.079,
      "path_width_km": 258,
      "max_duration_seconds": 383,
      "path": [
        {"lat": 36.1, "lon": -5.35, "duration": 285, "location": "Gibraltar"},
        {"lat": 30.0, "lon": 5.8, "duration": 291},
        {"lat": 25.7, "lon": 32.6, "duration": 383, "location": "Luxor"},
        {"lat": 18.0, "lon": 42.0, "duration": 350}
      ]
    },
    {
      "id": "2026-08-12",
      "name": "Total Solar Eclipse 2026",
      "date": "2026-08-12",
      "type": "total",
      "magnitude": 1.039,
      "path_width_km": 294,
      "max_duration_seconds": 138,
      "path": [
        {"lat": 65.0, "lon": -18.0, "duration": 128, "location": "Iceland"},
        {"lat": 40.5, "lon": -3.0, "duration": 104, "location": "Spain"}
      ]
    },
    {
      "id": "2025-09-21",
      "name": "Partial Solar Eclipse 2025",
      "date": "2025-09-21",
      "type": "partial",
      "magnitude": 0.855,
      "path": []
    }
  ]
}`

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load(strings.NewReader(fixtureJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cat
}

func TestLoadSortsChronologically(t *testing.T) {
	cat := loadFixture(t)
	if cat.Len() != 3 {
		t.Fatalf("Len = %d, want 3", cat.Len())
	}
	all := cat.All()
	for i := 1; i < len(all); i++ {
		if all[i].Date.Before(all[i-1].Date) {
			t.Errorf("records not chronological: %s before %s", all[i].ID, all[i-1].ID)
		}
	}
	if all[0].ID != "2025-09-21" {
		t.Errorf("first record = %s, want 2025-09-21", all[0].ID)
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{{{`},
		{"bad date", `{"eclipses":[{"id":"x","date":"sometime in august","type":"total","magnitude":1.0,"path":[{"lat":1,"lon":1}]}]}`},
		{"missing id", `{"eclipses":[{"date":"2027-08-02","type":"total","magnitude":1.0,"path":[{"lat":1,"lon":1}]}]}`},
		{"unknown type", `{"eclipses":[{"id":"x","date":"2027-08-02","type":"hybridish","magnitude":1.0,"path":[{"lat":1,"lon":1}]}]}`},
		{"total without path", `{"eclipses":[{"id":"x","date":"2027-08-02","type":"total","magnitude":1.0,"path":[]}]}`},
		{"magnitude out of range", `{"eclipses":[{"id":"x","date":"2027-08-02","type":"total","magnitude":7.5,"path":[{"lat":1,"lon":1}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.json))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformedData) {
				t.Errorf("error %v should wrap ErrMalformedData", err)
			}
		})
	}
}

func TestLoadAcceptsRFC3339Dates(t *testing.T) {
	j := `{"eclipses":[{"id":"x","date":"2027-08-02T10:00:00Z","type":"partial","magnitude":0.5,"path":[]}]}`
	cat, err := Load(strings.NewReader(j))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cat.FindByID("x").Date.Year(); got != 2027 {
		t.Errorf("year = %d, want 2027", got)
	}
}

func TestFindByID(t *testing.T) {
	cat := loadFixture(t)
	if rec := cat.FindByID("2027-08-02"); rec == nil || rec.Name != "Total Solar Eclipse 2027" {
		t.Errorf("FindByID(2027-08-02) = %+v", rec)
	}
	if rec := cat.FindByID("no-such"); rec != nil {
		t.Errorf("FindByID(no-such) = %+v, want nil", rec)
	}
}

func TestNearestFuture(t *testing.T) {
	cat := loadFixture(t)

	rec := cat.NearestFuture(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if rec == nil || rec.ID != "2026-08-12" {
		t.Fatalf("NearestFuture(2026) = %+v, want 2026-08-12", rec)
	}

	rec = cat.NearestFuture(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if rec == nil || rec.ID != "2027-08-02" {
		t.Fatalf("NearestFuture(2027) = %+v, want 2027-08-02", rec)
	}

	if rec = cat.NearestFuture(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)); rec != nil {
		t.Errorf("NearestFuture past catalog end = %+v, want nil", rec)
	}
}

func TestClassifyOnCenterline(t *testing.T) {
	cat := loadFixture(t)
	rec := cat.FindByID("2027-08-02")

	// Observer sitting on a path vertex.
	cls := ClassifyForObserver(rec, geo.Coordinate{Latitude: 30.0, Longitude: 5.8})
	if cls.Type != VisibilityTotal {
		t.Fatalf("type = %s, want total", cls.Type)
	}
	if cls.CoveragePercent != 100 {
		t.Errorf("coverage = %.1f, want 100", cls.CoveragePercent)
	}
	if cls.TotalityDurationSeconds != 291 {
		t.Errorf("duration = %.0f, want 291 (nearest point)", cls.TotalityDurationSeconds)
	}
	if cls.DistanceKm > 1 {
		t.Errorf("distance = %.1f km, want ~0", cls.DistanceKm)
	}
}

func TestClassifyPartialBand(t *testing.T) {
	cat := loadFixture(t)
	rec := cat.FindByID("2027-08-02")

	// Paris is several hundred km north of the path: partial coverage,
	// strictly between 0 and 100.
	cls := ClassifyForObserver(rec, geo.Coordinate{Latitude: 48.86, Longitude: 2.35})
	if cls.Type != VisibilityPartial {
		t.Fatalf("type = %s, want partial (distance %.0f km)", cls.Type, cls.DistanceKm)
	}
	if cls.CoveragePercent <= 0 || cls.CoveragePercent >= 100 {
		t.Errorf("coverage = %.1f, want strictly in (0, 100)", cls.CoveragePercent)
	}
	if cls.Magnitude >= rec.Magnitude {
		t.Errorf("partial magnitude %.3f should be reduced below record magnitude %.3f", cls.Magnitude, rec.Magnitude)
	}
}

func TestClassifyNone(t *testing.T) {
	cat := loadFixture(t)
	rec := cat.FindByID("2027-08-02")

	// Tokyo is far outside the 2000 km partial band.
	cls := ClassifyForObserver(rec, geo.Coordinate{Latitude: 35.68, Longitude: 139.69})
	if cls.Type != VisibilityNone {
		t.Errorf("type = %s, want none (distance %.0f km)", cls.Type, cls.DistanceKm)
	}
	if cls.CoveragePercent != 0 {
		t.Errorf("coverage = %.1f, want 0", cls.CoveragePercent)
	}
}

func TestClassifyCoverageMonotonicWithDistance(t *testing.T) {
	cat := loadFixture(t)
	rec := cat.FindByID("2027-08-02")

	// Moving due north away from the path, coverage never increases.
	prev := 101.0
	for lat := 31.0; lat <= 46.0; lat += 3 {
		cls := ClassifyForObserver(rec, geo.Coordinate{Latitude: lat, Longitude: 5.8})
		if cls.CoveragePercent > prev {
			t.Errorf("coverage increased moving away from path: %.2f > %.2f at lat %.1f", cls.CoveragePercent, prev, lat)
		}
		prev = cls.CoveragePercent
	}
}

func TestFindVisibleFrom(t *testing.T) {
	cat := loadFixture(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)

	// Madrid: near the 2026 path, within 1500 km of the 2027 path,
	// and partial eclipses always pass the date filter.
	madrid := geo.Coordinate{Latitude: 40.42, Longitude: -3.7}
	visible := cat.FindVisibleFrom(madrid, start, end)
	if len(visible) != 3 {
		t.Fatalf("visible from Madrid = %d records, want 3", len(visible))
	}

	// Tokyo: only the partial record survives the proximity filter.
	tokyo := geo.Coordinate{Latitude: 35.68, Longitude: 139.69}
	visible = cat.FindVisibleFrom(tokyo, start, end)
	if len(visible) != 1 || visible[0].Type != TypePartial {
		t.Errorf("visible from Tokyo = %+v, want just the partial record", visible)
	}

	// Narrow date range excludes everything.
	visible = cat.FindVisibleFrom(madrid, start, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if len(visible) != 0 {
		t.Errorf("visible in empty range = %d, want 0", len(visible))
	}
}

func TestNearestPathPoint(t *testing.T) {
	cat := loadFixture(t)
	rec := cat.FindByID("2027-08-02")

	pt, dist := NearestPathPoint(rec.Path, geo.Coordinate{Latitude: 25.0, Longitude: 33.0})
	if pt.LocationName != "Luxor" {
		t.Errorf("nearest point = %+v, want Luxor", pt)
	}
	if dist > 200 {
		t.Errorf("distance to Luxor = %.0f km, want < 200", dist)
	}
}

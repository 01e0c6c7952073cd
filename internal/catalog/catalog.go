// Package catalog holds the in-memory eclipse catalog: record loading,
// chronological queries and per-observer coverage classification.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

// ErrMalformedData is returned when catalog input cannot be parsed or a
// record violates a structural requirement (unparseable date, missing path
// for a total/annular eclipse, out-of-range magnitude).
var ErrMalformedData = errors.New("malformed eclipse data")

const (
	// defaultPathWidthKm is assumed when a record omits its path width.
	defaultPathWidthKm = 200.0

	// partialVisibilityKm is how far from the centerline a partial phase is
	// still considered observable.
	partialVisibilityKm = 2000.0

	// proximityKm bounds the FindVisibleFrom path-distance filter for
	// total/annular eclipses.
	proximityKm = 1500.0
)

// Catalog is an immutable, chronologically sorted set of eclipse records.
// Safe for concurrent reads after Load.
type Catalog struct {
	records []Record
	byID    map[string]*Record
}

// rawRecord mirrors Record with the date as an ISO calendar string, which is
// how the static data files encode it.
type rawRecord struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Date               string      `json:"date"`
	Type               EclipseType `json:"type"`
	Magnitude          float64     `json:"magnitude"`
	PathWidthKm        float64     `json:"path_width_km"`
	MaxDurationSeconds float64     `json:"max_duration_seconds"`
	Path               []PathPoint `json:"path"`
}

type rawFile struct {
	Eclipses []rawRecord `json:"eclipses"`
}

// Load parses catalog JSON from r. The whole load fails with ErrMalformedData
// on the first structurally invalid record; a catalog with silently dropped
// eclipses would be worse than no catalog at all.
func Load(r io.Reader) (*Catalog, error) {
	var raw rawFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	records := make([]Record, 0, len(raw.Eclipses))
	for _, re := range raw.Eclipses {
		rec, err := re.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	byID := make(map[string]*Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	return &Catalog{records: records, byID: byID}, nil
}

// LoadFile reads and parses a catalog JSON file from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (re rawRecord) toRecord() (Record, error) {
	if re.ID == "" {
		return Record{}, fmt.Errorf("%w: record without id", ErrMalformedData)
	}
	date, err := parseEclipseDate(re.Date)
	if err != nil {
		return Record{}, fmt.Errorf("%w: record %s: %v", ErrMalformedData, re.ID, err)
	}
	switch re.Type {
	case TypeTotal, TypeAnnular, TypePartial:
	default:
		return Record{}, fmt.Errorf("%w: record %s: unknown type %q", ErrMalformedData, re.ID, re.Type)
	}
	if re.Type != TypePartial && len(re.Path) == 0 {
		return Record{}, fmt.Errorf("%w: record %s: %s eclipse without path", ErrMalformedData, re.ID, re.Type)
	}
	if re.Magnitude < 0 || re.Magnitude > 1.2 {
		return Record{}, fmt.Errorf("%w: record %s: magnitude %.3f out of range", ErrMalformedData, re.ID, re.Magnitude)
	}

	width := re.PathWidthKm
	if width <= 0 {
		width = defaultPathWidthKm
	}

	return Record{
		ID:                 re.ID,
		Name:               re.Name,
		Date:               date,
		Type:               re.Type,
		Magnitude:          re.Magnitude,
		PathWidthKm:        width,
		MaxDurationSeconds: re.MaxDurationSeconds,
		Path:               re.Path,
	}, nil
}

// parseEclipseDate accepts an ISO calendar date, with or without a time
// component. Time of day is irrelevant at catalog granularity.
func parseEclipseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// All returns every record in chronological order.
func (c *Catalog) All() []Record {
	return c.records
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}

// FindByID returns the record with the given id, or nil.
func (c *Catalog) FindByID(id string) *Record {
	return c.byID[id]
}

// NearestFuture returns the first eclipse on or after the given instant,
// or nil when the catalog has none left.
func (c *Catalog) NearestFuture(from time.Time) *Record {
	for i := range c.records {
		if !c.records[i].Date.Before(from) {
			return &c.records[i]
		}
	}
	return nil
}

// FindVisibleFrom returns the eclipses within [start, end] that are
// observable from the coordinate: total/annular eclipses require a path
// point within proximityKm; partial eclipses pass the date filter alone.
func (c *Catalog) FindVisibleFrom(coord geo.Coordinate, start, end time.Time) []Record {
	var out []Record
	for _, rec := range c.records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		if rec.Type == TypeTotal || rec.Type == TypeAnnular {
			if _, dist := NearestPathPoint(rec.Path, coord); dist > proximityKm {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// NearestPathPoint finds the path point closest to the coordinate by linear
// scan (path polylines are short) and returns it with the great-circle
// distance in km. The distance is to the nearest vertex, not interpolated
// along the arc.
func NearestPathPoint(path []PathPoint, coord geo.Coordinate) (PathPoint, float64) {
	if len(path) == 0 {
		return PathPoint{}, 0
	}
	best := path[0]
	bestDist := geo.HaversineKm(coord.Latitude, coord.Longitude, best.Lat, best.Lon)
	for _, p := range path[1:] {
		if d := geo.HaversineKm(coord.Latitude, coord.Longitude, p.Lat, p.Lon); d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best, bestDist
}

// ClassifyForObserver determines what an observer at coord sees of the given
// eclipse: inside half the path width means the full total/annular phase with
// the nearest point's duration; within partialVisibilityKm a partial phase
// with coverage falling off linearly; beyond that, nothing.
func ClassifyForObserver(rec *Record, coord geo.Coordinate) Classification {
	nearest, dist := NearestPathPoint(rec.Path, coord)

	// A partial eclipse has no umbral path, so nobody sees a total phase.
	if rec.Type != TypePartial && len(rec.Path) > 0 && dist <= rec.PathWidthKm/2 {
		duration := nearest.DurationSeconds
		if duration <= 0 {
			duration = rec.MaxDurationSeconds
		}
		return Classification{
			Type:                    VisibilityTotal,
			CoveragePercent:         100,
			DistanceKm:              dist,
			TotalityDurationSeconds: duration,
			Magnitude:               rec.Magnitude,
		}
	}

	if len(rec.Path) > 0 && dist <= partialVisibilityKm {
		coverage := 100 * (1 - dist/partialVisibilityKm) * rec.Magnitude
		if coverage < 0 {
			coverage = 0
		}
		return Classification{
			Type:            VisibilityPartial,
			CoveragePercent: coverage,
			DistanceKm:      dist,
			Magnitude:       rec.Magnitude * coverage / 100,
		}
	}

	return Classification{Type: VisibilityNone, DistanceKm: dist}
}

// Package contact computes the four contact instants of an eclipse for a
// specific observer.
//
// The solver is an approximation, not an ephemeris integration: it anchors
// maximum eclipse to local apparent noon at the nearest centerline point and
// shifts it by the standard 4 minutes of time per degree of longitude. Contact
// windows are fixed offsets around that maximum. The resulting times are
// accurate to minutes, which is what a field checklist needs; they are not
// validated against the true solar altitude.
package contact

import (
	"errors"
	"fmt"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

// ErrNoLocation is returned when the observer coordinate is unset or invalid.
var ErrNoLocation = errors.New("observer location not set")

const (
	// minutesPerDegree is the solar-time approximation: the Sun crosses one
	// degree of longitude every 4 minutes.
	minutesPerDegree = 4.0

	// totalityRangeKm is the hard centerline-distance cap beyond which the
	// solver always produces a partial-only solution, whatever the path
	// width claims.
	totalityRangeKm = 500.0

	// partialHalfWindow brackets C1..C4 around maximum for total solutions.
	partialHalfWindow = 90 * time.Minute

	// partialOnlyHalfWindow brackets C1..C4 for partial-only solutions.
	partialOnlyHalfWindow = 60 * time.Minute
)

// ContactTimes holds the solved contact instants for one observer. C2 and C3
// are nil for partial-only solutions. All times are UTC.
type ContactTimes struct {
	C1                      time.Time  `json:"c1"`
	C2                      *time.Time `json:"c2,omitempty"`
	C3                      *time.Time `json:"c3,omitempty"`
	C4                      time.Time  `json:"c4"`
	MaxTime                 time.Time  `json:"max_time"`
	TotalityDurationSeconds float64    `json:"totality_duration_seconds"`
	IsTotal                 bool       `json:"is_total"`
}

// PartialDurationSeconds returns the full C1..C4 span.
func (ct ContactTimes) PartialDurationSeconds() float64 {
	return ct.C4.Sub(ct.C1).Seconds()
}

// Solve computes contact times for an observer watching the given eclipse.
//
// The nearest path point is the timing reference. Maximum eclipse falls at the
// reference point's local apparent noon, then shifts by
// (observerLon - refLon) * 4 min: an observer east of the reference sees every
// event earlier in UTC, so a positive eastward offset is subtracted from the
// UTC anchors.
func Solve(rec *catalog.Record, coord geo.Coordinate) (ContactTimes, error) {
	if err := coord.Validate(); err != nil {
		return ContactTimes{}, fmt.Errorf("%w: %v", ErrNoLocation, err)
	}
	if rec == nil {
		return ContactTimes{}, fmt.Errorf("%w: no eclipse record", catalog.ErrMalformedData)
	}
	if rec.Date.IsZero() {
		return ContactTimes{}, fmt.Errorf("%w: record %s has no date", catalog.ErrMalformedData, rec.ID)
	}
	if len(rec.Path) == 0 {
		return ContactTimes{}, fmt.Errorf("%w: record %s has no path to solve against", catalog.ErrMalformedData, rec.ID)
	}

	ref, distKm := catalog.NearestPathPoint(rec.Path, coord)

	// Local apparent noon at the reference point, expressed in UTC. East
	// longitude means noon arrives earlier in UTC.
	noonUTC := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(), 12, 0, 0, 0, time.UTC)
	maxAtRef := noonUTC.Add(-lonToOffset(ref.Lon))

	// Shift from the reference point to the observer.
	maxTime := maxAtRef.Add(-lonToOffset(coord.Longitude - ref.Lon))

	duration := ref.DurationSeconds
	if duration <= 0 {
		duration = rec.MaxDurationSeconds
	}

	// The totality decision must agree with the catalog classification:
	// observers the catalog calls partial never get C2/C3 from the solver.
	cls := catalog.ClassifyForObserver(rec, coord)
	total := cls.Type == catalog.VisibilityTotal &&
		distKm <= totalityRangeKm &&
		duration > 0

	if !total {
		return ContactTimes{
			C1:      maxTime.Add(-partialOnlyHalfWindow),
			C4:      maxTime.Add(partialOnlyHalfWindow),
			MaxTime: maxTime,
		}, nil
	}

	half := time.Duration(duration/2*1000) * time.Millisecond
	c2 := maxTime.Add(-half)
	c3 := c2.Add(time.Duration(duration*1000) * time.Millisecond)

	return ContactTimes{
		C1:                      maxTime.Add(-partialHalfWindow),
		C2:                      &c2,
		C3:                      &c3,
		C4:                      maxTime.Add(partialHalfWindow),
		MaxTime:                 maxTime,
		TotalityDurationSeconds: duration,
		IsTotal:                 true,
	}, nil
}

// lonToOffset converts degrees of east longitude to the solar-time offset.
func lonToOffset(lonDeg float64) time.Duration {
	return time.Duration(lonDeg * minutesPerDegree * float64(time.Minute))
}

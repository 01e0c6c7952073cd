// Package sequence turns contact times and an optical system into a
// time-ordered capture plan: which exposure ladder to run, when, with how many
// shots, and when to pull or replace the solar filter.
package sequence

import (
	"errors"
	"time"
)

// ErrEquipmentNotConfigured signals that no optical system was supplied and
// the returned plan is the generic fallback. It is advisory: the plan that
// accompanies it is complete and usable.
var ErrEquipmentNotConfigured = errors.New("equipment not configured, using generic sequence")

// Phase tags a capture step with the eclipse feature it targets.
type Phase string

const (
	PhasePartial       Phase = "partial"
	PhaseFilterWarning Phase = "filter-warning"
	PhaseBaily         Phase = "baily"
	PhaseChromosphere  Phase = "chromosphere"
	PhaseInnerCorona   Phase = "inner-corona"
	PhaseMidCorona     Phase = "mid-corona"
	PhaseOuterCorona   Phase = "outer-corona"
	PhaseProminence    Phase = "prominence"
)

// Priority orders steps when the operator has to choose.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// CameraType selects exposure scaling and gain/ISO defaults.
type CameraType string

const (
	CameraCMOS    CameraType = "cmos"
	CameraDSLR    CameraType = "dslr"
	CameraGeneric CameraType = "generic"
)

// Step is one entry of the capture plan. Exposures are in seconds; rendering
// them as 1/N fractions is the consumer's concern. A step with an empty
// ladder is a pure alert (filter warnings).
type Step struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Phase               Phase     `json:"phase"`
	StartTime           time.Time `json:"start_time"`
	DurationSeconds     float64   `json:"duration_seconds"`
	Exposures           []float64 `json:"exposures"`
	Shots               int       `json:"shots"`
	ISO                 int       `json:"iso,omitempty"`
	Gain                int       `json:"gain,omitempty"`
	Priority            Priority  `json:"priority"`
	RequiresSolarFilter bool      `json:"requires_solar_filter"`
	AlertMessage        string    `json:"alert_message,omitempty"`
}

// EndTime returns the step's scheduled end.
func (s Step) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationSeconds * float64(time.Second)))
}

// Camera describes the sensor for gain defaults and data-size estimation.
type Camera struct {
	Type      CameraType `json:"type"`
	UnityGain int        `json:"unity_gain,omitempty"`
	WidthPx   int        `json:"width_px,omitempty"`
	HeightPx  int        `json:"height_px,omitempty"`
	BitDepth  int        `json:"bit_depth,omitempty"`
}

// Preferences are operator overrides. Zero values mean "use the default".
type Preferences struct {
	ISO              int     `json:"iso,omitempty"`
	Gain             int     `json:"gain,omitempty"`
	ShotsPerExposure int     `json:"shots_per_exposure,omitempty"`
	DownloadOverhead float64 `json:"download_overhead_seconds,omitempty"`
}

const (
	defaultISO       = 400
	defaultUnityGain = 120
	defaultShots     = 3
	bailyShots       = 5

	// defaultDownloadOverhead is the per-frame readout+save cost assumed by
	// the shot-count optimizer.
	defaultDownloadOverhead = 0.5
)

// isoGainTable maps common ISO values to CMOS gain settings.
var isoGainTable = map[int]int{
	100:  0,
	200:  50,
	400:  100,
	800:  150,
	1600: 200,
	3200: 250,
}

// ISOToGain converts an ISO value to an approximate CMOS gain, interpolating
// linearly for values outside the table.
func ISOToGain(iso int) int {
	if g, ok := isoGainTable[iso]; ok {
		return g
	}
	return iso / 100 * 50
}

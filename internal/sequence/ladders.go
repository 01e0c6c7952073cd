package sequence

import (
	"math"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/optics"
)

// Exposure ladders for the totality sub-phases, in milliseconds, hand-tuned
// for the corona's luminosity falloff with radius. The chromosphere is orders
// of magnitude brighter than the outer streamers, so each ring gets its own
// ladder rather than one giant bracket.
var (
	chromosphereLadderMs = []float64{0.5, 1, 2, 4, 8}
	innerCoronaLadderMs  = []float64{4, 8, 16, 32, 63}
	midCoronaLadderMs    = []float64{63, 125, 250, 500, 1000}
	outerCoronaLadderMs  = []float64{1000, 2000, 4000, 8000}
	prominenceLadderMs   = []float64{1, 2, 4}
)

// Partial-phase and Baily's-beads ladders, in seconds. These are filtered or
// near-photospheric exposures and do not scale with the optics.
var (
	partialLadder = []float64{1.0 / 4000, 1.0 / 2000, 1.0 / 1000}
	bailyLadder   = []float64{1.0 / 4000, 1.0 / 2000, 1.0 / 1000, 1.0 / 500}
)

// Scaling reference: the base ladders assume a 600mm f/5 system.
const (
	baseFocalLengthMm = 600.0
	baseFocalRatio    = 5.0
)

// cameraExposureFactor compensates sensor sensitivity: CMOS astro cameras
// need shorter exposures than a DSLR at the same gain.
func cameraExposureFactor(t CameraType) float64 {
	switch t {
	case CameraCMOS:
		return 0.8
	case CameraDSLR:
		return 1.2
	default:
		return 1.0
	}
}

// ladderScaleFactor combines focal length, focal ratio and camera type into
// one multiplier for the totality ladders.
func ladderScaleFactor(sys *optics.OpticalSystem, cam CameraType) float64 {
	if sys == nil {
		return 1.0
	}
	return (sys.FocalLengthMm / baseFocalLengthMm) *
		(sys.FocalRatio / baseFocalRatio) *
		cameraExposureFactor(cam)
}

// scaleLadder applies the factor to a millisecond ladder, rounds each entry
// to a standard exposure value and converts to seconds.
func scaleLadder(ladderMs []float64, factor float64) []float64 {
	out := make([]float64, len(ladderMs))
	for i, ms := range ladderMs {
		out[i] = roundExposureMs(ms*factor) / 1000
	}
	return out
}

// roundExposureMs snaps a millisecond exposure to values a camera can
// actually be set to: 0.1ms steps below 1ms, whole ms below 10, 5ms steps
// below 100, 10ms steps below 1s, 0.1s steps above.
func roundExposureMs(ms float64) float64 {
	switch {
	case ms < 1:
		return math.Round(ms*10) / 10
	case ms < 10:
		return math.Round(ms)
	case ms < 100:
		return math.Round(ms/5) * 5
	case ms < 1000:
		return math.Round(ms/10) * 10
	default:
		return math.Round(ms/100) * 100
	}
}

// Package optics derives imaging characteristics of a telescope+camera pair:
// field of view, pixel sampling against the diffraction limit, speed and
// sensor-format bands, and a binning recommendation.
package optics

import (
	"fmt"
	"math"
)

// plateScaleConstant converts (pixel µm / focal mm) to arcsec per pixel.
const plateScaleConstant = 206.265

// sunAngularDiameterDeg is the mean apparent solar diameter.
const sunAngularDiameterDeg = 0.53

// SpeedBand classifies a focal ratio.
type SpeedBand string

const (
	SpeedUltraFast SpeedBand = "ultra-fast" // f < 4
	SpeedFast      SpeedBand = "fast"       // f < 6
	SpeedMedium    SpeedBand = "medium"     // f < 9
	SpeedSlow      SpeedBand = "slow"
)

// FormatBand classifies a sensor by diagonal.
type FormatBand string

const (
	FormatFullFrame   FormatBand = "full-frame"   // diagonal > 42 mm
	FormatAPSC        FormatBand = "aps-c"        // > 30 mm
	FormatFourThirds  FormatBand = "four-thirds"  // > 20 mm
	FormatOneInch     FormatBand = "one-inch"     // > 13 mm
	FormatSmallSensor FormatBand = "small"
)

// SamplingStatus classifies the sampling ratio against the Nyquist criterion
// (half the Dawes limit).
type SamplingStatus string

const (
	HeavyOversampling     SamplingStatus = "heavy-oversampling"     // ratio < 0.5
	Oversampling          SamplingStatus = "oversampling"           // < 0.8
	OptimalSampling       SamplingStatus = "optimal"                // <= 1.5
	Undersampling         SamplingStatus = "undersampling"          // <= 2.5
	CriticalUndersampling SamplingStatus = "critical-undersampling"
)

// OpticalSystem is the full derived description of a telescope+camera pair.
type OpticalSystem struct {
	ApertureMm     float64 `json:"aperture_mm"`
	FocalLengthMm  float64 `json:"focal_length_mm"`
	SensorWidthMm  float64 `json:"sensor_width_mm"`
	SensorHeightMm float64 `json:"sensor_height_mm"`
	PixelSizeUm    float64 `json:"pixel_size_um"`

	FocalRatio          float64 `json:"focal_ratio"`
	FOVWidthDeg         float64 `json:"fov_width_deg"`
	FOVHeightDeg        float64 `json:"fov_height_deg"`
	FOVDiagonalDeg      float64 `json:"fov_diagonal_deg"`
	SamplingArcsec      float64 `json:"sampling_arcsec_per_pixel"`
	SamplingRatio       float64 `json:"sampling_ratio"`
	DawesLimitArcsec    float64 `json:"dawes_limit_arcsec"`
	RayleighLimitArcsec float64 `json:"rayleigh_limit_arcsec"`
	LightGathering      float64 `json:"light_gathering_power"`

	SunDiameterPixels float64 `json:"sun_diameter_pixels"`
	SunFitsInFrame    bool    `json:"sun_fits_in_frame"`

	Speed              SpeedBand      `json:"speed_band"`
	Format             FormatBand     `json:"format_band"`
	Sampling           SamplingStatus `json:"sampling_status"`
	RecommendedBinning int            `json:"recommended_binning"`
}

// Compute derives the optical system from raw dimensions. Aperture and focal
// length must be positive; a zero or negative value is a caller bug and
// panics rather than producing quietly wrong numbers.
func Compute(apertureMm, focalLengthMm, sensorWidthMm, sensorHeightMm, pixelSizeUm float64) OpticalSystem {
	if apertureMm <= 0 || focalLengthMm <= 0 {
		panic(fmt.Sprintf("optics: non-positive aperture %.2f or focal length %.2f", apertureMm, focalLengthMm))
	}

	sys := OpticalSystem{
		ApertureMm:     apertureMm,
		FocalLengthMm:  focalLengthMm,
		SensorWidthMm:  sensorWidthMm,
		SensorHeightMm: sensorHeightMm,
		PixelSizeUm:    pixelSizeUm,
	}

	sys.FocalRatio = focalLengthMm / apertureMm
	sys.FOVWidthDeg = fovDeg(sensorWidthMm, focalLengthMm)
	sys.FOVHeightDeg = fovDeg(sensorHeightMm, focalLengthMm)
	diagonalMm := math.Hypot(sensorWidthMm, sensorHeightMm)
	sys.FOVDiagonalDeg = fovDeg(diagonalMm, focalLengthMm)

	sys.SamplingArcsec = pixelSizeUm / focalLengthMm * plateScaleConstant
	sys.DawesLimitArcsec = 120 / apertureMm
	sys.RayleighLimitArcsec = 138 / apertureMm
	sys.LightGathering = math.Pow(apertureMm/7, 2)

	nyquist := sys.DawesLimitArcsec / 2
	sys.SamplingRatio = sys.SamplingArcsec / nyquist
	sys.Sampling = statusForRatio(sys.SamplingRatio)
	sys.RecommendedBinning = binningForRatio(sys.SamplingRatio)

	if sys.SamplingArcsec > 0 && sensorWidthMm > 0 && pixelSizeUm > 0 {
		sys.SunDiameterPixels = sunAngularDiameterDeg * 3600 / sys.SamplingArcsec
		sunWidthMm := sys.SunDiameterPixels * pixelSizeUm / 1000
		sys.SunFitsInFrame = sunWidthMm/sensorWidthMm < 0.9
	}

	sys.Speed = speedFor(sys.FocalRatio)
	sys.Format = formatFor(diagonalMm)

	return sys
}

func fovDeg(sensorMm, focalMm float64) float64 {
	return 2 * math.Atan(sensorMm/(2*focalMm)) * 180 / math.Pi
}

func speedFor(fRatio float64) SpeedBand {
	switch {
	case fRatio < 4:
		return SpeedUltraFast
	case fRatio < 6:
		return SpeedFast
	case fRatio < 9:
		return SpeedMedium
	default:
		return SpeedSlow
	}
}

func formatFor(diagonalMm float64) FormatBand {
	switch {
	case diagonalMm > 42:
		return FormatFullFrame
	case diagonalMm > 30:
		return FormatAPSC
	case diagonalMm > 20:
		return FormatFourThirds
	case diagonalMm > 13:
		return FormatOneInch
	default:
		return FormatSmallSensor
	}
}

func statusForRatio(ratio float64) SamplingStatus {
	switch {
	case ratio < 0.5:
		return HeavyOversampling
	case ratio < 0.8:
		return Oversampling
	case ratio <= 1.5:
		return OptimalSampling
	case ratio <= 2.5:
		return Undersampling
	default:
		return CriticalUndersampling
	}
}

// binningForRatio recommends on-camera binning. Only oversampled systems
// benefit; binning an undersampled sensor throws away detail.
func binningForRatio(ratio float64) int {
	switch {
	case ratio < 0.5:
		return 4
	case ratio < 0.8:
		return 2
	default:
		return 1
	}
}

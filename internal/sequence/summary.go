package sequence

// dslrFrameBytes approximates a RAW file from a modern DSLR.
const dslrFrameBytes = 30 * 1024 * 1024

// Summary aggregates a plan for storage-card guidance.
type Summary struct {
	TotalSteps         int     `json:"total_steps"`
	TotalFrames        int     `json:"total_frames"`
	BytesPerFrame      int64   `json:"bytes_per_frame"`
	EstimatedBytes     int64   `json:"estimated_bytes"`
	RecommendedCardGiB int     `json:"recommended_card_gib"`
	TotalExposureSec   float64 `json:"total_exposure_seconds"`
}

// Summarize totals the frames and data volume of a plan. CMOS frame size
// follows sensor geometry and bit depth; DSLR RAW is taken as a flat 30 MiB.
// Unknown sensors fall back to the DSLR estimate.
func Summarize(steps []Step, cam Camera) Summary {
	var sum Summary
	sum.TotalSteps = len(steps)

	perFrame := int64(dslrFrameBytes)
	if cam.Type == CameraCMOS && cam.WidthPx > 0 && cam.HeightPx > 0 {
		bitDepth := cam.BitDepth
		if bitDepth == 0 {
			bitDepth = 16
		}
		perFrame = int64(cam.WidthPx) * int64(cam.HeightPx) * int64(bitDepth) / 8
	}
	sum.BytesPerFrame = perFrame

	for _, step := range steps {
		frames := step.Shots * len(step.Exposures)
		sum.TotalFrames += frames
		for _, exp := range step.Exposures {
			sum.TotalExposureSec += exp * float64(step.Shots)
		}
	}

	sum.EstimatedBytes = int64(sum.TotalFrames) * perFrame

	// Recommend twice the estimated volume, rounded up to a whole GiB.
	const gib = 1 << 30
	need := sum.EstimatedBytes * 2
	sum.RecommendedCardGiB = int((need + gib - 1) / gib)

	return sum
}

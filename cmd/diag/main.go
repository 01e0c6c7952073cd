package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/astro"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/contact"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/countdown"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/optics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/sequence"
)

// Field sanity check: load a catalog, solve for an observer and print the
// capture plan. Usage: diag <catalog.json> <lat> <lon>
func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: diag <catalog.json> <lat> <lon>")
		os.Exit(2)
	}

	cat, err := catalog.LoadFile(os.Args[1])
	if err != nil {
		fmt.Println("ERROR loading catalog:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d eclipses\n", cat.Len())

	lat, err1 := strconv.ParseFloat(os.Args[2], 64)
	lon, err2 := strconv.ParseFloat(os.Args[3], 64)
	if err1 != nil || err2 != nil {
		fmt.Println("ERROR: lat/lon must be numbers")
		os.Exit(1)
	}
	obs, err := geo.NewCoordinate(lat, lon, 0)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	rec := cat.NearestFuture(time.Now().UTC())
	if rec == nil {
		fmt.Println("No future eclipse in catalog")
		os.Exit(1)
	}
	fmt.Printf("Next eclipse: %s (%s) on %s\n", rec.Name, rec.Type, rec.Date.Format("2006-01-02"))

	cls := catalog.ClassifyForObserver(rec, obs)
	fmt.Printf("Observer sees: %s, coverage %.1f%%, %.0f km from centerline\n",
		cls.Type, cls.CoveragePercent, cls.DistanceKm)

	ct, err := contact.Solve(rec, obs)
	if err != nil {
		fmt.Println("ERROR solving contacts:", err)
		os.Exit(1)
	}
	fmt.Printf("C1=%s max=%s C4=%s\n",
		ct.C1.Format(time.RFC3339), ct.MaxTime.Format(time.RFC3339), ct.C4.Format(time.RFC3339))
	if ct.IsTotal {
		fmt.Printf("C2=%s C3=%s totality %s\n",
			ct.C2.Format(time.RFC3339), ct.C3.Format(time.RFC3339),
			countdown.FormatDuration(time.Duration(ct.TotalityDurationSeconds)*time.Second))
	} else {
		fmt.Println("Partial only at this location")
	}

	// Reference rig: 80mm f/5 refractor with an APS-C CMOS camera.
	sys := optics.Compute(80, 400, 23.5, 15.6, 3.76)
	fmt.Printf("Optics: f/%.1f, %.2f\"/px (%s), sun %0.f px, fits frame: %v\n",
		sys.FocalRatio, sys.SamplingArcsec, sys.Sampling, sys.SunDiameterPixels, sys.SunFitsInFrame)

	cam := sequence.Camera{Type: sequence.CameraCMOS, WidthPx: 6248, HeightPx: 4176, BitDepth: 14}
	steps, err := sequence.Generate(ct, &sys, cam, sequence.Preferences{})
	if err != nil {
		fmt.Println("ERROR generating plan:", err)
		os.Exit(1)
	}
	sequence.OptimizeShotCounts(steps, sequence.Preferences{})

	fmt.Printf("\nPlan: %d steps\n", len(steps))
	for _, s := range steps {
		fmt.Printf("  %-22s %s +%4.0fs x%-3d filter=%v\n",
			s.ID, s.StartTime.Format("15:04:05"), s.DurationSeconds, s.Shots, s.RequiresSolarFilter)
	}

	sum := sequence.Summarize(steps, cam)
	fmt.Printf("\nTotal frames: %d\nEstimated data: %s\nRecommended card: %d GiB\n",
		sum.TotalFrames,
		humanize.IBytes(uint64(sum.EstimatedBytes)),
		sum.RecommendedCardGiB)

	day := astro.SunriseSunset(rec.Date, obs)
	if !day.PolarDay && !day.PolarNight {
		fmt.Printf("\nSunrise %s, sunset %s\n",
			day.Sunrise.Format("15:04:05"), day.Sunset.Format("15:04:05"))
	}
	pa := astro.PolarAlignmentFor(obs)
	fmt.Printf("Polar alignment: %s hemisphere, axis alt %.1f az %.0f (%s)\n",
		pa.Hemisphere, pa.AltitudeDeg, pa.AzimuthDeg, pa.Star.Name)
}

package sequence

import (
	"math"
	"sort"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/contact"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/optics"
)

// Totality sub-phase scheduling, in seconds relative to C2 (positive) or C3
// (negative from the end). Matched to what each feature actually does during
// an eclipse: the chromosphere flashes right after second contact, the outer
// streamers need the darkest mid-eclipse sky, prominences reappear on the
// trailing limb just before third contact.
const (
	chromosphereOffset = 6
	chromosphereDur    = 10
	innerCoronaOffset  = 40
	innerCoronaDur     = 30
	midCoronaDur       = 30
	outerCoronaLead    = 70 // starts C3-70s, ends C3-40s
	outerCoronaDur     = 30
	prominenceLead     = 16 // starts C3-16s
	prominenceDur      = 10

	filterWarningLead = 30 // warning at C2-30s
	bailyLead         = 5  // Baily's beads run C2-5s for 10s
	bailyDur          = 10
	filterReapplyLag  = 5 // warning at C3+5s
)

// Generate builds the capture plan for the given contact times.
//
// With a nil optical system it still returns a complete, usable plan built
// from the unscaled base ladders, together with ErrEquipmentNotConfigured so
// the caller can tell the operator they are flying generic.
func Generate(ct contact.ContactTimes, sys *optics.OpticalSystem, cam Camera, prefs Preferences) ([]Step, error) {
	iso := prefs.ISO
	if iso == 0 {
		iso = defaultISO
	}
	gain := prefs.Gain
	if gain == 0 {
		gain = cam.UnityGain
	}
	if gain == 0 {
		gain = defaultUnityGain
	}
	shots := prefs.ShotsPerExposure
	if shots == 0 {
		shots = defaultShots
	}

	var steps []Step
	if ct.IsTotal && ct.C2 != nil && ct.C3 != nil {
		steps = totalTemplate(ct, sys, cam, iso, gain, shots)
	} else {
		steps = partialTemplate(ct, iso, gain, shots)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StartTime.Before(steps[j].StartTime)
	})

	if sys == nil {
		return steps, ErrEquipmentNotConfigured
	}
	return steps, nil
}

// partialTemplate covers eclipses with no local totality: start, maximum and
// end, filtered throughout.
func partialTemplate(ct contact.ContactTimes, iso, gain, shots int) []Step {
	mk := func(id, name string, at time.Time, priority Priority) Step {
		return Step{
			ID:                  id,
			Name:                name,
			Phase:               PhasePartial,
			StartTime:           at,
			DurationSeconds:     120,
			Exposures:           partialLadder,
			Shots:               shots,
			ISO:                 iso,
			Gain:                gain,
			Priority:            priority,
			RequiresSolarFilter: true,
		}
	}
	return []Step{
		mk("partial-start", "First contact", ct.C1, PriorityMedium),
		mk("partial-max", "Maximum obscuration", ct.MaxTime, PriorityHigh),
		mk("partial-end", "Last contact", ct.C4.Add(-60*time.Second), PriorityLow),
	}
}

func totalTemplate(ct contact.ContactTimes, sys *optics.OpticalSystem, cam Camera, iso, gain, shots int) []Step {
	c2, c3 := *ct.C2, *ct.C3
	totality := c3.Sub(c2).Seconds()
	factor := ladderScaleFactor(sys, cam.Type)

	// Short totality squeezes every sub-phase; never let one segment eat
	// more than a fifth of the available time.
	capDur := func(nominal float64) float64 {
		return math.Min(nominal, totality/5)
	}
	// Keep a segment inside (C2, C3).
	clampOffset := func(offset, dur float64) float64 {
		if max := totality - dur; offset > max {
			offset = max
		}
		if offset < 0 {
			offset = 0
		}
		return offset
	}

	at := func(base time.Time, offsetSec float64) time.Time {
		return base.Add(time.Duration(offsetSec * float64(time.Second)))
	}

	steps := []Step{
		{
			ID:                  "c1-partial",
			Name:                "First contact",
			Phase:               PhasePartial,
			StartTime:           ct.C1,
			DurationSeconds:     120,
			Exposures:           partialLadder,
			Shots:               shots,
			ISO:                 iso,
			Gain:                gain,
			Priority:            PriorityMedium,
			RequiresSolarFilter: true,
		},
		{
			ID:                  "partial-mid",
			Name:                "Mid partial phase",
			Phase:               PhasePartial,
			StartTime:           ct.C1.Add(c2.Sub(ct.C1) / 2),
			DurationSeconds:     180,
			Exposures:           partialLadder,
			Shots:               shots,
			ISO:                 iso,
			Gain:                gain,
			Priority:            PriorityLow,
			RequiresSolarFilter: true,
		},
		{
			ID:                  "filter-removal-warning",
			Name:                "Prepare to remove solar filter",
			Phase:               PhaseFilterWarning,
			StartTime:           at(c2, -filterWarningLead),
			DurationSeconds:     filterWarningLead,
			Priority:            PriorityCritical,
			RequiresSolarFilter: true,
			AlertMessage:        "Remove solar filter now",
		},
		{
			ID:              "c2-baily",
			Name:            "Baily's beads, second contact",
			Phase:           PhaseBaily,
			StartTime:       at(c2, -bailyLead),
			DurationSeconds: bailyDur,
			Exposures:       bailyLadder,
			Shots:           bailyShots,
			ISO:             iso,
			Gain:            gain,
			Priority:        PriorityCritical,
		},
	}

	sub := func(id, name string, phase Phase, offset, dur float64, ladderMs []float64, priority Priority) Step {
		dur = capDur(dur)
		offset = clampOffset(offset, dur)
		return Step{
			ID:              id,
			Name:            name,
			Phase:           phase,
			StartTime:       at(c2, offset),
			DurationSeconds: dur,
			Exposures:       scaleLadder(ladderMs, factor),
			Shots:           shots,
			ISO:             iso,
			Gain:            gain,
			Priority:        priority,
		}
	}

	steps = append(steps,
		sub("chromosphere", "Chromosphere", PhaseChromosphere,
			chromosphereOffset, chromosphereDur, chromosphereLadderMs, PriorityHigh),
		sub("inner-corona", "Inner corona", PhaseInnerCorona,
			innerCoronaOffset, innerCoronaDur, innerCoronaLadderMs, PriorityHigh),
		sub("mid-corona", "Mid corona", PhaseMidCorona,
			totality/2-capDur(midCoronaDur)/2, midCoronaDur, midCoronaLadderMs, PriorityMedium),
		sub("outer-corona", "Outer corona", PhaseOuterCorona,
			totality-outerCoronaLead, outerCoronaDur, outerCoronaLadderMs, PriorityMedium),
		sub("prominences", "Prominences", PhaseProminence,
			totality-prominenceLead, prominenceDur, prominenceLadderMs, PriorityHigh),
	)

	steps = append(steps,
		Step{
			ID:              "c3-baily",
			Name:            "Baily's beads, third contact",
			Phase:           PhaseBaily,
			StartTime:       c3,
			DurationSeconds: bailyDur,
			Exposures:       bailyLadder,
			Shots:           bailyShots,
			ISO:             iso,
			Gain:            gain,
			Priority:        PriorityCritical,
		},
		Step{
			ID:                  "filter-reapply-warning",
			Name:                "Replace solar filter",
			Phase:               PhaseFilterWarning,
			StartTime:           at(c3, filterReapplyLag),
			DurationSeconds:     10,
			Priority:            PriorityCritical,
			RequiresSolarFilter: true,
			AlertMessage:        "Replace solar filter now",
		},
		Step{
			ID:                  "c4-partial",
			Name:                "Last contact",
			Phase:               PhasePartial,
			StartTime:           ct.C4.Add(-60 * time.Second),
			DurationSeconds:     120,
			Exposures:           partialLadder,
			Shots:               shots,
			ISO:                 iso,
			Gain:                gain,
			Priority:            PriorityLow,
			RequiresSolarFilter: true,
		},
	)

	return steps
}

// OptimizeShotCounts sizes each step's shot count to its scheduled duration:
// one pass through the ladder costs the summed exposures plus a fixed
// download overhead per frame, the step keeps a 20% safety margin, and the
// result is clamped to [1, 100]. Alert steps with no ladder get zero shots,
// since there is nothing to expose during them.
func OptimizeShotCounts(steps []Step, prefs Preferences) {
	overhead := prefs.DownloadOverhead
	if overhead == 0 {
		overhead = defaultDownloadOverhead
	}

	for i := range steps {
		step := &steps[i]
		if len(step.Exposures) == 0 {
			step.Shots = 0
			continue
		}

		ladderPass := overhead * float64(len(step.Exposures))
		for _, exp := range step.Exposures {
			ladderPass += exp
		}

		available := step.DurationSeconds * 0.8
		n := int(math.Floor(available / ladderPass))
		if n < 1 {
			n = 1
		}
		if n > 100 {
			n = 100
		}
		step.Shots = n
	}
}

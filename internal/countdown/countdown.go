// Package countdown projects wall-clock time onto the eclipse timeline:
// which phase is running, which capture step is active, how long until the
// next contact, and which lead-time alerts are due.
//
// The engine is deliberately stateless about phase: every Tick recomputes the
// full state from contact times plus the clock, so a paused or restarted tick
// loop resumes correctly with no checkpointing. The only memory it keeps is
// the set of alerts already fired, so each one is delivered exactly once.
package countdown

import (
	"fmt"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/contact"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/sequence"
)

// Phase is the coarse eclipse state as seen by the observer.
type Phase string

const (
	PhasePre           Phase = "pre"
	PhasePartialBefore Phase = "partial-before"
	PhaseTotality      Phase = "totality"
	PhasePartialAfter  Phase = "partial-after"
	PhasePartial       Phase = "partial" // partial-only eclipses, C1..C4
	PhasePost          Phase = "post"
)

// alertLeads are the seconds of warning before each boundary, in firing order.
var alertLeads = []int{60, 30, 10, 5, 0}

// staleAlertWindow suppresses alerts whose boundary is already long past,
// so an engine started mid-eclipse does not replay the morning's warnings.
const staleAlertWindow = 10 * time.Second

// Alert kinds. A lead-time warning precedes the instant; at lead zero the
// instant itself has arrived.
const (
	KindLeadWarning     = "lead-time-warning"
	KindBoundaryReached = "boundary-reached"
)

// Alert is a warning for an upcoming contact boundary or capture step.
// Exactly one of Boundary and StepID is set.
type Alert struct {
	Kind        string    `json:"kind"`
	Boundary    string    `json:"boundary,omitempty"`
	StepID      string    `json:"step_id,omitempty"`
	LeadSeconds int       `json:"lead_seconds"`
	At          time.Time `json:"at"`
	Message     string    `json:"message"`
}

// State is the full countdown snapshot for one tick.
type State struct {
	Now       time.Time `json:"now"`
	Phase     Phase     `json:"phase"`
	AtMaximum bool      `json:"at_maximum,omitempty"`

	NextBoundary     string     `json:"next_boundary,omitempty"`
	NextBoundaryTime *time.Time `json:"next_boundary_time,omitempty"`
	Countdown        string     `json:"countdown,omitempty"`
	CountdownSeconds float64    `json:"countdown_seconds,omitempty"`

	ActiveStep *sequence.Step `json:"active_step,omitempty"`
	NextStep   *sequence.Step `json:"next_step,omitempty"`

	FilterRequired bool `json:"filter_required"`
}

// Engine drives the countdown for one observing session. Not safe for
// concurrent use; the owning session serializes Tick and Reset.
type Engine struct {
	contacts contact.ContactTimes
	steps    []sequence.Step
	fired    map[string]bool
}

// NewEngine builds an engine over solved contact times and a generated plan.
// The engine holds the slice read-only.
func NewEngine(ct contact.ContactTimes, steps []sequence.Step) *Engine {
	return &Engine{
		contacts: ct,
		steps:    steps,
		fired:    make(map[string]bool),
	}
}

// Reset clears all alert dedup markers, re-arming every boundary.
func (e *Engine) Reset() {
	e.fired = make(map[string]bool)
}

// atMaximumWindow marks the partial-only "at maximum" sub-state.
const atMaximumWindow = 2 * time.Minute

// Tick computes the state at the given instant and returns any alerts that
// became due since the last tick. Alerts fire exactly once per boundary and
// lead until Reset.
func (e *Engine) Tick(now time.Time) (State, []Alert) {
	st := State{Now: now}

	ct := e.contacts
	st.Phase = e.phaseAt(now)
	st.FilterRequired = st.Phase != PhaseTotality

	if st.Phase == PhasePartial {
		delta := now.Sub(ct.MaxTime)
		if delta < 0 {
			delta = -delta
		}
		st.AtMaximum = delta <= atMaximumWindow
	}

	if name, at, ok := e.nextBoundary(now); ok {
		st.NextBoundary = name
		t := at
		st.NextBoundaryTime = &t
		st.CountdownSeconds = at.Sub(now).Seconds()
		st.Countdown = FormatCountdown(at.Sub(now))
	}

	st.ActiveStep, st.NextStep = e.scanSteps(now)

	return st, e.collectAlerts(now)
}

// phaseAt maps the clock onto the contact boundaries.
func (e *Engine) phaseAt(now time.Time) Phase {
	ct := e.contacts
	switch {
	case now.Before(ct.C1):
		return PhasePre
	case !now.Before(ct.C4):
		return PhasePost
	}
	if !ct.IsTotal || ct.C2 == nil || ct.C3 == nil {
		return PhasePartial
	}
	switch {
	case now.Before(*ct.C2):
		return PhasePartialBefore
	case now.Before(*ct.C3):
		return PhaseTotality
	default:
		return PhasePartialAfter
	}
}

type boundary struct {
	name string
	at   time.Time
}

// boundaries lists the alertable contact instants in order. Partial-only
// eclipses alert on the maximum instead of C2/C3.
func (e *Engine) boundaries() []boundary {
	ct := e.contacts
	out := []boundary{{"C1", ct.C1}}
	if ct.C2 != nil && ct.C3 != nil {
		out = append(out, boundary{"C2", *ct.C2}, boundary{"C3", *ct.C3})
	} else {
		out = append(out, boundary{"MAX", ct.MaxTime})
	}
	out = append(out, boundary{"C4", ct.C4})
	return out
}

func (e *Engine) nextBoundary(now time.Time) (string, time.Time, bool) {
	for _, b := range e.boundaries() {
		if now.Before(b.at) {
			return b.name, b.at, true
		}
	}
	return "", time.Time{}, false
}

// collectAlerts fires every due, unfired lead-time alert, for contact
// boundaries and for capture step starts alike. An alert whose instant passed
// more than staleAlertWindow ago is marked without being delivered.
func (e *Engine) collectAlerts(now time.Time) []Alert {
	var due []Alert
	for _, b := range e.boundaries() {
		due = e.collectLeads(due, now, b.name, "", b.name, b.at)
	}
	for i := range e.steps {
		step := &e.steps[i]
		due = e.collectLeads(due, now, "", step.ID, step.Name, step.StartTime)
	}
	return due
}

// collectLeads fires the due leads for one alertable instant. Dedup keys for
// steps carry a "step/" prefix so a step ID can never collide with a contact
// boundary name.
func (e *Engine) collectLeads(due []Alert, now time.Time, boundary, stepID, name string, at time.Time) []Alert {
	ref := boundary
	if stepID != "" {
		ref = "step/" + stepID
	}
	for _, lead := range alertLeads {
		trigger := at.Add(-time.Duration(lead) * time.Second)
		if now.Before(trigger) {
			continue
		}
		key := fmt.Sprintf("%s/%d", ref, lead)
		if e.fired[key] {
			continue
		}
		e.fired[key] = true

		if now.Sub(at) > staleAlertWindow {
			continue // ancient history, swallow silently
		}
		kind := KindLeadWarning
		if lead == 0 {
			kind = KindBoundaryReached
		}
		due = append(due, Alert{
			Kind:        kind,
			Boundary:    boundary,
			StepID:      stepID,
			LeadSeconds: lead,
			At:          now,
			Message:     alertMessage(name, lead),
		})
	}
	return due
}

func alertMessage(name string, lead int) string {
	if lead == 0 {
		return name + " now"
	}
	return fmt.Sprintf("%s in %d seconds", name, lead)
}

// scanSteps finds the step covering now and the first step after it. Plans
// are a dozen entries, so a linear scan per tick is fine.
func (e *Engine) scanSteps(now time.Time) (active, next *sequence.Step) {
	for i := range e.steps {
		step := &e.steps[i]
		if !step.StartTime.After(now) && now.Before(step.EndTime()) {
			active = step
		}
		if next == nil && step.StartTime.After(now) {
			next = step
		}
	}
	return active, next
}

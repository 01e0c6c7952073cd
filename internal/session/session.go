// Package session runs observing sessions: each one owns a countdown engine,
// ticks it against the wall clock, journals fired alerts and fans state out
// to any number of subscribers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/contact"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/countdown"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/journal"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/metrics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/optics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/sequence"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session not found")

// Event is one tick's output, delivered to subscribers.
type Event struct {
	State  countdown.State   `json:"state"`
	Alerts []countdown.Alert `json:"alerts,omitempty"`
}

// Session is one running observing session.
type Session struct {
	ID        string               `json:"id"`
	EclipseID string               `json:"eclipse_id"`
	Observer  geo.Coordinate       `json:"observer"`
	Contacts  contact.ContactTimes `json:"contacts"`
	Plan      []sequence.Step      `json:"plan"`
	Summary   sequence.Summary     `json:"summary"`
	Generic   bool                 `json:"generic_plan"`
	StartedAt time.Time            `json:"started_at"`

	engine *countdown.Engine
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	last countdown.State
	subs map[chan Event]struct{}
}

// State returns the most recent tick snapshot.
func (s *Session) State() countdown.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Subscribe registers a listener for tick events. The returned cancel
// function must be called when done; slow subscribers miss events rather
// than stalling the tick loop.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// Done is closed when the session's tick loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// StartRequest carries everything needed to open a session.
type StartRequest struct {
	Record      *catalog.Record
	Observer    geo.Coordinate
	Optics      *optics.OpticalSystem
	Camera      sequence.Camera
	Preferences sequence.Preferences
}

// Manager owns all live sessions.
type Manager struct {
	journal  *journal.Journal // may be nil, journaling is best-effort
	logger   *slog.Logger
	interval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager ticking each session at the given
// interval (1s if zero). The journal may be nil.
func NewManager(j *journal.Journal, logger *slog.Logger, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Second
	}
	return &Manager{
		journal:  j,
		logger:   logger,
		interval: interval,
		sessions: make(map[string]*Session),
	}
}

// Start solves, plans and launches a ticking session for the request.
// A missing optical system degrades to the generic plan rather than failing.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, error) {
	ct, err := contact.Solve(req.Record, req.Observer)
	if err != nil {
		metrics.IncContactSolves("error")
		return nil, err
	}
	if ct.IsTotal {
		metrics.IncContactSolves("total")
	} else {
		metrics.IncContactSolves("partial")
	}

	steps, err := sequence.Generate(ct, req.Optics, req.Camera, req.Preferences)
	generic := errors.Is(err, sequence.ErrEquipmentNotConfigured)
	if err != nil && !generic {
		return nil, err
	}
	sequence.OptimizeShotCounts(steps, req.Preferences)
	if generic {
		metrics.IncPlansGenerated("generic")
	} else {
		metrics.IncPlansGenerated("equipped")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.NewString(),
		EclipseID: req.Record.ID,
		Observer:  req.Observer,
		Contacts:  ct,
		Plan:      steps,
		Summary:   sequence.Summarize(steps, req.Camera),
		Generic:   generic,
		StartedAt: time.Now().UTC(),
		engine:    countdown.NewEngine(ct, steps),
		cancel:    cancel,
		done:      make(chan struct{}),
		subs:      make(map[chan Event]struct{}),
	}

	if m.journal != nil {
		rec := journal.Session{
			ID:        s.ID,
			EclipseID: s.EclipseID,
			Latitude:  req.Observer.Latitude,
			Longitude: req.Observer.Longitude,
			StartedAt: s.StartedAt,
		}
		if err := m.journal.StartSession(ctx, rec); err != nil {
			m.logger.Warn("journal session start failed", "session_id", s.ID, "error", err)
		} else if err := m.journal.SavePlan(ctx, s.ID, steps); err != nil {
			m.logger.Warn("journal plan save failed", "session_id", s.ID, "error", err)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.IncSessionsActive()
	m.logger.Info("session started",
		"session_id", s.ID,
		"eclipse_id", s.EclipseID,
		"is_total", ct.IsTotal,
		"generic_plan", generic,
		"steps", len(steps),
	)

	go m.run(runCtx, s)
	return s, nil
}

// run drives one session's tick loop until cancelled.
func (m *Manager) run(ctx context.Context, s *Session) {
	defer close(s.done)
	defer metrics.DecSessionsActive()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tickOnce(ctx, s, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.tickOnce(ctx, s, now)
		}
	}
}

func (m *Manager) tickOnce(ctx context.Context, s *Session, now time.Time) {
	s.mu.Lock()
	state, alerts := s.engine.Tick(now)
	s.last = state
	ev := Event{State: state, Alerts: alerts}
	for ch := range s.subs {
		select {
		case ch <- ev:
		default: // subscriber lagging, drop this tick for it
		}
	}
	s.mu.Unlock()

	for _, a := range alerts {
		label := a.Boundary
		if label == "" {
			label = "step"
		}
		metrics.IncAlertsFired(label)
		m.logger.Info("alert fired",
			"session_id", s.ID,
			"kind", a.Kind,
			"boundary", a.Boundary,
			"step_id", a.StepID,
			"lead_seconds", a.LeadSeconds,
		)
		if m.journal != nil {
			if err := m.journal.RecordAlert(ctx, s.ID, a); err != nil {
				m.logger.Warn("journal alert failed", "session_id", s.ID, "error", err)
			}
		}
	}
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Stop cancels a session's tick loop and removes it.
func (m *Manager) Stop(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.cancel()
	<-s.done

	s.mu.Lock()
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()

	if m.journal != nil {
		if err := m.journal.StopSession(ctx, id, time.Now().UTC()); err != nil {
			m.logger.Warn("journal session stop failed", "session_id", id, "error", err)
		}
	}
	m.logger.Info("session stopped", "session_id", id)
	return nil
}

// Shutdown stops every live session.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, s := range m.List() {
		if err := m.Stop(ctx, s.ID); err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.Warn("session shutdown error", "session_id", s.ID, "error", err)
		}
	}
}

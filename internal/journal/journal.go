// Package journal persists observing sessions, generated plans and fired
// alerts to a local SQLite file for post-event review. The store is embedded
// and file-backed so it works offline in the field.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/countdown"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/sequence"
)

// Journal is a handle on the session store. Safe for concurrent use; the
// underlying *sql.DB serializes access.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// createSchema creates all journal tables. Safe to call repeatedly; every
// statement uses IF NOT EXISTS.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating journal schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS observing_session (
    id TEXT PRIMARY KEY,
    eclipse_id TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    started_at TIMESTAMP NOT NULL,
    stopped_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS session_plan (
    session_id TEXT NOT NULL REFERENCES observing_session(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL,
    steps TEXT NOT NULL,
    PRIMARY KEY (session_id)
);

CREATE TABLE IF NOT EXISTS session_alert (
    session_id TEXT NOT NULL REFERENCES observing_session(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    boundary TEXT NOT NULL DEFAULT '',
    step_id TEXT NOT NULL DEFAULT '',
    lead_seconds INTEGER NOT NULL,
    fired_at TIMESTAMP NOT NULL,
    message TEXT NOT NULL,
    PRIMARY KEY (session_id, boundary, step_id, lead_seconds)
);

CREATE INDEX IF NOT EXISTS idx_session_alert_session ON session_alert(session_id);
`

// Session is one row of the observing_session table.
type Session struct {
	ID        string     `json:"id"`
	EclipseID string     `json:"eclipse_id"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// StartSession records the beginning of an observing session.
func (j *Journal) StartSession(ctx context.Context, s Session) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO observing_session (id, eclipse_id, latitude, longitude, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.EclipseID, s.Latitude, s.Longitude, s.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording session %s: %w", s.ID, err)
	}
	return nil
}

// StopSession stamps a session's end time.
func (j *Journal) StopSession(ctx context.Context, id string, at time.Time) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE observing_session SET stopped_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("stopping session %s: %w", id, err)
	}
	return nil
}

// SavePlan stores the generated step list as JSON against the session,
// replacing any earlier plan.
func (j *Journal) SavePlan(ctx context.Context, sessionID string, steps []sequence.Step) error {
	payload, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("encoding plan for session %s: %w", sessionID, err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO session_plan (session_id, created_at, steps) VALUES (?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET created_at = excluded.created_at, steps = excluded.steps`,
		sessionID, time.Now().UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("saving plan for session %s: %w", sessionID, err)
	}
	return nil
}

// Plan loads the stored step list for a session. Returns sql.ErrNoRows when
// no plan was saved.
func (j *Journal) Plan(ctx context.Context, sessionID string) ([]sequence.Step, error) {
	var payload string
	err := j.db.QueryRowContext(ctx,
		`SELECT steps FROM session_plan WHERE session_id = ?`, sessionID).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("loading plan for session %s: %w", sessionID, err)
	}
	var steps []sequence.Step
	if err := json.Unmarshal([]byte(payload), &steps); err != nil {
		return nil, fmt.Errorf("decoding plan for session %s: %w", sessionID, err)
	}
	return steps, nil
}

// RecordAlert journals one fired alert. The primary key mirrors the
// engine's dedup key, so replaying a tick loop cannot double-record.
func (j *Journal) RecordAlert(ctx context.Context, sessionID string, a countdown.Alert) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO session_alert (session_id, kind, boundary, step_id, lead_seconds, fired_at, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, boundary, step_id, lead_seconds) DO NOTHING`,
		sessionID, a.Kind, a.Boundary, a.StepID, a.LeadSeconds, a.At.UTC(), a.Message)
	if err != nil {
		return fmt.Errorf("recording alert for session %s: %w", sessionID, err)
	}
	return nil
}

// Alerts returns the alerts fired during a session, in firing order.
func (j *Journal) Alerts(ctx context.Context, sessionID string) ([]countdown.Alert, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, boundary, step_id, lead_seconds, fired_at, message
		FROM session_alert WHERE session_id = ? ORDER BY fired_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading alerts for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []countdown.Alert
	for rows.Next() {
		var a countdown.Alert
		if err := rows.Scan(&a.Kind, &a.Boundary, &a.StepID, &a.LeadSeconds, &a.At, &a.Message); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Sessions lists all recorded sessions, newest first.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, eclipse_id, latitude, longitude, started_at, stopped_at
		FROM observing_session ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.EclipseID, &s.Latitude, &s.Longitude, &s.StartedAt, &s.StoppedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

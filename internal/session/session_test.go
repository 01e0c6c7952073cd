package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
)

func testRecord() *catalog.Record {
	return &catalog.Record{
		ID:                 "2027-08-02",
		Name:               "Total Solar Eclipse 2027",
		Date:               time.Date(2027, 8, 2, 0, 0, 0, 0, time.UTC),
		Type:               catalog.TypeTotal,
		Magnitude:          1.079,
		PathWidthKm:        258,
		MaxDurationSeconds: 383,
		Path: []catalog.PathPoint{
			{Lat: 30.0, Lon: 5.8, DurationSeconds: 291},
		},
	}
}

func testManager() *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(nil, logger, 10*time.Millisecond)
}

func TestStartAndStopSession(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	s, err := m.Start(ctx, StartRequest{
		Record:   testRecord(),
		Observer: geo.Coordinate{Latitude: 30.0, Longitude: 5.8},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.ID == "" {
		t.Error("session has no id")
	}
	if !s.Generic {
		t.Error("session without optics should carry the generic plan flag")
	}
	if len(s.Plan) == 0 {
		t.Error("session has no plan")
	}
	if !s.Contacts.IsTotal {
		t.Error("centerline observer should get a total solution")
	}

	got, err := m.Get(s.ID)
	if err != nil || got.ID != s.ID {
		t.Errorf("Get = %v, %v", got, err)
	}

	if err := m.Stop(ctx, s.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("tick loop did not exit after Stop")
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Stop = %v, want ErrNotFound", err)
	}
}

func TestSessionTicksAndPublishes(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	s, err := m.Start(ctx, StartRequest{
		Record:   testRecord(),
		Observer: geo.Coordinate{Latitude: 30.0, Longitude: 5.8},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(ctx, s.ID)

	ch, cancel := s.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		if ev.State.Now.IsZero() {
			t.Error("event carries zero state")
		}
	case <-time.After(time.Second):
		t.Fatal("no tick event within 1s")
	}

	// State() reflects the last tick.
	deadline := time.Now().Add(time.Second)
	for s.State().Now.IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("State never populated")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeCancelIdempotent(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	s, err := m.Start(ctx, StartRequest{
		Record:   testRecord(),
		Observer: geo.Coordinate{Latitude: 30.0, Longitude: 5.8},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(ctx, s.ID)

	_, cancel := s.Subscribe()
	cancel()
	cancel() // second call must not panic or double-close
}

func TestStartRejectsInvalidObserver(t *testing.T) {
	m := testManager()
	_, err := m.Start(context.Background(), StartRequest{
		Record:   testRecord(),
		Observer: geo.Coordinate{Latitude: 95, Longitude: 0},
	})
	if err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
}

func TestShutdownStopsEverything(t *testing.T) {
	m := testManager()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Start(ctx, StartRequest{
			Record:   testRecord(),
			Observer: geo.Coordinate{Latitude: 30.0, Longitude: 5.8},
		}); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if got := len(m.List()); got != 3 {
		t.Fatalf("live sessions = %d, want 3", got)
	}

	m.Shutdown(ctx)
	if got := len(m.List()); got != 0 {
		t.Errorf("live sessions after shutdown = %d, want 0", got)
	}
}

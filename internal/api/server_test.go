package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/auth"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/session"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/stream"
)

const testCatalogJSON = `{
  "eclipses": [
    {
      "id": "2026-08-12",
      "name": "Total Solar Eclipse 2026",
      "date": "2026-08-12",
      "type": "total",
      "magnitude": 1.039,
      "path_width_km": 294,
      "max_duration_seconds": 138,
      "path": [
        {"lat": 65.0, "lon": -18.0, "duration": 130, "location": "Iceland"},
        {"lat": 40.5, "lon": -3.0, "duration": 104, "location": "Madrid"}
      ]
    },
    {
      "id": "2027-08-02",
      "name": "Total Solar Eclipse 2027",
      "date": "2027-08-02",
      "type": "total",
      "magnitude": 1.079,
      "path_width_km": 258,
      "max_duration_seconds": 383,
      "path": [
        {"lat": 36.0, "lon": -5.5, "duration": 285, "location": "Gibraltar"},
        {"lat": 30.0, "lon": 5.8, "duration": 291},
        {"lat": 25.7, "lon": 32.6, "duration": 383, "location": "Luxor"}
      ]
    }
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testServer(t *testing.T, authCfg auth.Config) *Server {
	t.Helper()
	cat, err := catalog.Load(strings.NewReader(testCatalogJSON))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	logger := testLogger()
	sessions := session.NewManager(nil, logger, 10*time.Millisecond)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	sse := stream.NewHandler(sessions, stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}, logger)

	return NewServer(":0", logger, authCfg, Deps{
		Catalog:  cat,
		Sessions: sessions,
		Stream:   sse,
	})
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestCatalogEndpoints(t *testing.T) {
	srv := testServer(t, auth.Config{})

	w, resp := doJSON(t, srv, "GET", "/api/v1/catalog", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	w, resp = doJSON(t, srv, "GET", "/api/v1/catalog/2027-08-02", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if resp["name"] != "Total Solar Eclipse 2027" {
		t.Errorf("name = %v", resp["name"])
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/catalog/1999-08-11", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}

	w, resp = doJSON(t, srv, "GET", "/api/v1/catalog/nearest?from=2026-09-01T00:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("nearest status = %d", w.Code)
	}
	if resp["id"] != "2027-08-02" {
		t.Errorf("nearest id = %v, want 2027-08-02", resp["id"])
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/catalog/nearest?from=2050-01-01T00:00:00Z", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("exhausted catalog status = %d, want 404", w.Code)
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/catalog/nearest?from=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", w.Code)
	}
}

func TestClassifyEndpoint(t *testing.T) {
	srv := testServer(t, auth.Config{})

	// Centerline observer sees totality.
	w, resp := doJSON(t, srv, "POST", "/api/v1/classify",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["type"] != "total" {
		t.Errorf("type = %v, want total", resp["type"])
	}
	if resp["coverage_percent"].(float64) != 100 {
		t.Errorf("coverage = %v, want 100", resp["coverage_percent"])
	}

	// Observer far from any path sees nothing.
	w, resp = doJSON(t, srv, "POST", "/api/v1/classify",
		`{"eclipse_id":"2027-08-02","latitude":35.68,"longitude":139.65}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["type"] != "none" {
		t.Errorf("type = %v, want none", resp["type"])
	}

	// Out-of-range latitude rejected.
	w, _ = doJSON(t, srv, "POST", "/api/v1/classify",
		`{"eclipse_id":"2027-08-02","latitude":95,"longitude":0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w, _ = doJSON(t, srv, "POST", "/api/v1/classify", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", w.Code)
	}
}

func TestContactsEndpoint(t *testing.T) {
	srv := testServer(t, auth.Config{})

	w, resp := doJSON(t, srv, "POST", "/api/v1/contacts",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["is_total"] != true {
		t.Error("centerline solve should be total")
	}
	if resp["totality_duration_seconds"].(float64) != 291 {
		t.Errorf("duration = %v, want 291", resp["totality_duration_seconds"])
	}
	if resp["c2"] == nil || resp["c3"] == nil {
		t.Error("total solution missing c2/c3")
	}

	w, _ = doJSON(t, srv, "POST", "/api/v1/contacts",
		`{"eclipse_id":"2000-01-01","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown eclipse status = %d, want 404", w.Code)
	}
}

func TestPlanEndpoint(t *testing.T) {
	srv := testServer(t, auth.Config{})

	// Equipped plan: scaled ladders, no generic flag.
	w, resp := doJSON(t, srv, "POST", "/api/v1/plan",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8,
		  "equipment":{"aperture_mm":80,"focal_length_mm":400,"sensor_width_mm":23.5,"sensor_height_mm":15.6,"pixel_size_um":3.76},
		  "camera":{"type":"cmos"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["generic_plan"] != false {
		t.Error("equipped request flagged generic")
	}
	steps := resp["steps"].([]any)
	if len(steps) != 12 {
		t.Errorf("steps = %d, want 12", len(steps))
	}
	if resp["optics"] == nil {
		t.Error("missing optics echo")
	}

	// No equipment: generic fallback plan, still usable.
	w, resp = doJSON(t, srv, "POST", "/api/v1/plan",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp["generic_plan"] != true {
		t.Error("equipmentless request should be generic")
	}
	if len(resp["steps"].([]any)) != 12 {
		t.Error("generic plan should still carry the full template")
	}

	// Broken equipment dimensions are a client error, not a panic.
	w, _ = doJSON(t, srv, "POST", "/api/v1/plan",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8,
		  "equipment":{"aperture_mm":0,"focal_length_mm":400}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero aperture status = %d, want 400", w.Code)
	}
}

func TestSessionLifecycleHTTP(t *testing.T) {
	srv := testServer(t, auth.Config{})

	w, resp := doJSON(t, srv, "POST", "/api/v1/sessions",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	id, _ := resp["id"].(string)
	if id == "" {
		t.Fatal("session response missing id")
	}

	w, resp = doJSON(t, srv, "GET", "/api/v1/sessions/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if resp["state"] == nil {
		t.Error("session view missing countdown state")
	}

	w, resp = doJSON(t, srv, "GET", "/api/v1/sessions", "")
	if w.Code != http.StatusOK || resp["count"].(float64) != 1 {
		t.Errorf("list status = %d count = %v, want 200/1", w.Code, resp["count"])
	}

	w, _ = doJSON(t, srv, "DELETE", "/api/v1/sessions/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/sessions/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
}

func TestSunEndpoints(t *testing.T) {
	srv := testServer(t, auth.Config{})

	w, resp := doJSON(t, srv, "GET", "/api/v1/sun?lat=30&lon=5.8&at=2027-08-02T11:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("sun status = %d", w.Code)
	}
	sun := resp["sun"].(map[string]any)
	if sun["is_visible"] != true {
		t.Error("sun should be up near local noon in August")
	}

	w, resp = doJSON(t, srv, "GET", "/api/v1/sun/day?lat=30&lon=5.8&at=2027-08-02T00:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("sun/day status = %d", w.Code)
	}
	for _, key := range []string{"events", "culmination", "polar_alignment", "equation_of_time_minutes"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("sun/day missing %q", key)
		}
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/sun?lat=abc&lon=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad lat status = %d, want 400", w.Code)
	}
}

func TestAuthProtectsSessions(t *testing.T) {
	srv := testServer(t, auth.Config{Enabled: true, Token: "fieldkit"})

	// Catalog stays public.
	w, _ := doJSON(t, srv, "GET", "/api/v1/catalog", "")
	if w.Code != http.StatusOK {
		t.Errorf("catalog status = %d, want 200", w.Code)
	}

	// Sessions require the token.
	w, _ = doJSON(t, srv, "POST", "/api/v1/sessions",
		`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest("POST", "/api/v1/sessions",
		strings.NewReader(`{"eclipse_id":"2027-08-02","latitude":30.0,"longitude":5.8}`))
	req.Header.Set("Authorization", "Bearer fieldkit")
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	srv.HTTPServer().Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("authenticated status = %d, want 201", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	srv := testServer(t, auth.Config{})
	w, _ := doJSON(t, srv, "GET", "/readyz", "")
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", w.Code)
	}
	w, _ = doJSON(t, srv, "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
}

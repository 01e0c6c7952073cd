package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/astro"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/contact"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/countdown"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/geo"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/metrics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/optics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/sequence"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// observerRequest identifies an eclipse and an observer location. It is the
// common body of the classify, contacts, plan and session endpoints.
type observerRequest struct {
	EclipseID string  `json:"eclipse_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m,omitempty"`
}

// equipmentRequest carries raw telescope+camera dimensions. Absent means the
// caller has no configured equipment and gets the generic plan.
type equipmentRequest struct {
	ApertureMm     float64 `json:"aperture_mm"`
	FocalLengthMm  float64 `json:"focal_length_mm"`
	SensorWidthMm  float64 `json:"sensor_width_mm"`
	SensorHeightMm float64 `json:"sensor_height_mm"`
	PixelSizeUm    float64 `json:"pixel_size_um"`
}

type planRequest struct {
	observerRequest
	Equipment   *equipmentRequest    `json:"equipment,omitempty"`
	Camera      sequence.Camera      `json:"camera"`
	Preferences sequence.Preferences `json:"preferences"`
}

// resolveObserver looks up the eclipse record and validates the coordinate.
// On failure it writes the error response and returns ok=false.
func (s *Server) resolveObserver(w http.ResponseWriter, req observerRequest) (*catalog.Record, geo.Coordinate, bool) {
	rec := s.catalog.FindByID(req.EclipseID)
	if rec == nil {
		writeError(w, http.StatusNotFound, "unknown eclipse id")
		return nil, geo.Coordinate{}, false
	}
	coord, err := geo.NewCoordinate(req.Latitude, req.Longitude, req.AltitudeM)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, geo.Coordinate{}, false
	}
	return rec, coord, true
}

// buildOptics converts an equipment request into a derived optical system.
// Dimensions are validated here so bad client input becomes a 400, not a
// panic out of the optics package.
func buildOptics(eq *equipmentRequest) (*optics.OpticalSystem, error) {
	if eq == nil {
		return nil, nil
	}
	if eq.ApertureMm <= 0 || eq.FocalLengthMm <= 0 {
		return nil, errors.New("equipment aperture and focal length must be positive")
	}
	sys := optics.Compute(eq.ApertureMm, eq.FocalLengthMm, eq.SensorWidthMm, eq.SensorHeightMm, eq.PixelSizeUm)
	return &sys, nil
}

// GET /api/v1/catalog
func (s *Server) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"eclipses": s.catalog.All(),
		"count":    s.catalog.Len(),
	})
}

// GET /api/v1/catalog/{id}
func (s *Server) handleCatalogGet(w http.ResponseWriter, r *http.Request) {
	rec := s.catalog.FindByID(r.PathValue("id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "unknown eclipse id")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /api/v1/catalog/nearest?from=RFC3339
func (s *Server) handleCatalogNearest(w http.ResponseWriter, r *http.Request) {
	from := time.Now().UTC()
	if q := r.URL.Query().Get("from"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		from = t
	}
	rec := s.catalog.NearestFuture(from)
	if rec == nil {
		writeError(w, http.StatusNotFound, "no future eclipse in catalog")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// POST /api/v1/classify
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req observerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, coord, ok := s.resolveObserver(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, catalog.ClassifyForObserver(rec, coord))
}

// POST /api/v1/contacts
func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	var req observerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, coord, ok := s.resolveObserver(w, req)
	if !ok {
		return
	}

	ct, err := contact.Solve(rec, coord)
	if err != nil {
		metrics.IncContactSolves("error")
		writeError(w, solveStatus(err), err.Error())
		return
	}
	if ct.IsTotal {
		metrics.IncContactSolves("total")
	} else {
		metrics.IncContactSolves("partial")
	}
	writeJSON(w, http.StatusOK, ct)
}

// planResponse is shared by the stateless planner and session start.
type planResponse struct {
	Contacts contact.ContactTimes  `json:"contacts"`
	Steps    []sequence.Step       `json:"steps"`
	Summary  sequence.Summary      `json:"summary"`
	Generic  bool                  `json:"generic_plan"`
	Optics   *optics.OpticalSystem `json:"optics,omitempty"`
}

// POST /api/v1/plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, coord, ok := s.resolveObserver(w, req.observerRequest)
	if !ok {
		return
	}
	sys, err := buildOptics(req.Equipment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ct, err := contact.Solve(rec, coord)
	if err != nil {
		metrics.IncContactSolves("error")
		writeError(w, solveStatus(err), err.Error())
		return
	}
	if ct.IsTotal {
		metrics.IncContactSolves("total")
	} else {
		metrics.IncContactSolves("partial")
	}

	steps, err := sequence.Generate(ct, sys, req.Camera, req.Preferences)
	generic := errors.Is(err, sequence.ErrEquipmentNotConfigured)
	if err != nil && !generic {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sequence.OptimizeShotCounts(steps, req.Preferences)
	if generic {
		metrics.IncPlansGenerated("generic")
	} else {
		metrics.IncPlansGenerated("equipped")
	}

	writeJSON(w, http.StatusOK, planResponse{
		Contacts: ct,
		Steps:    steps,
		Summary:  sequence.Summarize(steps, req.Camera),
		Generic:  generic,
		Optics:   sys,
	})
}

// POST /api/v1/sessions
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, coord, ok := s.resolveObserver(w, req.observerRequest)
	if !ok {
		return
	}
	sys, err := buildOptics(req.Equipment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Start(r.Context(), session.StartRequest{
		Record:      rec,
		Observer:    coord,
		Optics:      sys,
		Camera:      req.Camera,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeError(w, solveStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/sessions
func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": list,
		"count":    len(list),
	})
}

// sessionStateResponse is the live view of a session: its static plan plus
// the most recent countdown tick.
type sessionStateResponse struct {
	*session.Session
	State countdown.State `json:"state"`
}

// GET /api/v1/sessions/{id}
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionStateResponse{Session: sess, State: sess.State()})
}

// DELETE /api/v1/sessions/{id}
func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Stop(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sunQuery parses lat/lon/at query parameters shared by the sun endpoints.
func sunQuery(r *http.Request) (geo.Coordinate, time.Time, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return geo.Coordinate{}, time.Time{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return geo.Coordinate{}, time.Time{}, errors.New("lon must be a number")
	}
	coord, err := geo.NewCoordinate(lat, lon, 0)
	if err != nil {
		return geo.Coordinate{}, time.Time{}, err
	}
	at := time.Now().UTC()
	if v := q.Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return geo.Coordinate{}, time.Time{}, errors.New("at must be RFC3339")
		}
		at = t.UTC()
	}
	return coord, at, nil
}

// GET /api/v1/sun?lat=&lon=&at=
func (s *Server) handleSun(w http.ResponseWriter, r *http.Request) {
	coord, at, err := sunQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"time":     at.Format(time.RFC3339),
		"observer": coord,
		"sun":      astro.SunPositionAt(at, coord),
	})
}

// GET /api/v1/sun/day?lat=&lon=&at=
func (s *Server) handleSunDay(w http.ResponseWriter, r *http.Request) {
	coord, at, err := sunQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":                     at.Format("2006-01-02"),
		"observer":                 coord,
		"events":                   astro.SunriseSunset(at, coord),
		"culmination":              astro.CulminationAt(at, coord),
		"polar_alignment":          astro.PolarAlignmentFor(coord),
		"equation_of_time_minutes": astro.EquationOfTimeMinutes(at),
	})
}

// solveStatus maps solver errors onto HTTP statuses.
func solveStatus(err error) int {
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate), errors.Is(err, contact.ErrNoLocation):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrMalformedData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

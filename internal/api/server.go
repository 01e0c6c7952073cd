// Package api wires the HTTP surface: routing, middleware chain and the
// request handlers for catalog, solver, planner and session endpoints.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/auth"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/catalog"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/health"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/httputil"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/metrics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/session"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/stream"
)

// Deps are the serving dependencies handed to the server at startup.
type Deps struct {
	Catalog  *catalog.Catalog
	Sessions *session.Manager
	Stream   *stream.Handler
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	catalog  *catalog.Catalog
	sessions *session.Manager
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	s := &Server{
		logger:   logger,
		catalog:  deps.Catalog,
		sessions: deps.Sessions,
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool {
		return s.catalog != nil && s.catalog.Len() > 0
	}))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/catalog", s.handleCatalogList)
	mux.HandleFunc("GET /api/v1/catalog/nearest", s.handleCatalogNearest)
	mux.HandleFunc("GET /api/v1/catalog/{id}", s.handleCatalogGet)
	mux.HandleFunc("POST /api/v1/classify", s.handleClassify)
	mux.HandleFunc("POST /api/v1/contacts", s.handleContacts)
	mux.HandleFunc("POST /api/v1/plan", s.handlePlan)

	mux.HandleFunc("POST /api/v1/sessions", s.handleSessionStart)
	mux.HandleFunc("GET /api/v1/sessions", s.handleSessionList)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleSessionStop)
	mux.HandleFunc("GET /api/v1/sessions/{id}/stream", deps.Stream.HandleSessionStream)

	mux.HandleFunc("GET /api/v1/sun", s.handleSun)
	mux.HandleFunc("GET /api/v1/sun/day", s.handleSunDay)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, false),
			)
		})
	}
}

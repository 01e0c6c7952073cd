package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eclipsed_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	contactSolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_contact_solves_total",
			Help: "Contact-time solver invocations by outcome.",
		},
		[]string{"outcome"},
	)

	plansGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_plans_generated_total",
			Help: "Exposure plans generated, by equipment mode.",
		},
		[]string{"mode"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eclipsed_sessions_active",
			Help: "Observing sessions currently ticking.",
		},
	)

	alertsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_alerts_fired_total",
			Help: "Countdown alerts delivered, by contact boundary.",
		},
		[]string{"boundary"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_stream_connections_total",
			Help: "SSE stream connect/disconnect events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "eclipsed_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eclipsed_stream_messages_total",
			Help: "SSE data messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eclipsed_stream_bytes_total",
			Help: "Bytes written to SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eclipsed_stream_errors_total",
			Help: "SSE stream errors by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		contactSolvesTotal,
		plansGeneratedTotal,
		sessionsActive,
		alertsFiredTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncContactSolves records a solver call. Outcome is "total", "partial" or
// "error".
func IncContactSolves(outcome string) {
	contactSolvesTotal.WithLabelValues(outcome).Inc()
}

// IncPlansGenerated records a planner call. Mode is "equipped" or "generic".
func IncPlansGenerated(mode string) {
	plansGeneratedTotal.WithLabelValues(mode).Inc()
}

// IncSessionsActive / DecSessionsActive track the session gauge.
func IncSessionsActive() { sessionsActive.Inc() }
func DecSessionsActive() { sessionsActive.Dec() }

// IncAlertsFired counts one delivered alert.
func IncAlertsFired(boundary string) {
	alertsFiredTotal.WithLabelValues(boundary).Inc()
}

// Stream instrumentation, called from the SSE handler.

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive()                 { streamsActive.Inc() }
func DecStreamsActive()                 { streamsActive.Dec() }
func IncStreamMessages()                { streamMessagesTotal.Inc() }
func AddStreamBytes(n int64)            { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(kind string)       { streamErrorsTotal.WithLabelValues(kind).Inc() }

// knownRoutes are exact paths that keep their own metric label.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/catalog":         true,
	"/api/v1/catalog/nearest": true,
	"/api/v1/classify":        true,
	"/api/v1/contacts":        true,
	"/api/v1/plan":            true,
	"/api/v1/sessions":        true,
	"/api/v1/sun":             true,
	"/api/v1/sun/day":         true,
}

// normalizeRoute collapses parameterized paths to one label each so that
// per-eclipse and per-session IDs don't explode metric cardinality. Unknown
// paths (bots, scanners) collapse to "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/catalog/"); ok && !strings.Contains(rest, "/") {
		return "/api/v1/catalog/{id}"
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/sessions/"); ok {
		if strings.HasSuffix(rest, "/stream") && strings.Count(rest, "/") == 1 {
			return "/api/v1/sessions/{id}/stream"
		}
		if !strings.Contains(rest, "/") {
			return "/api/v1/sessions/{id}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}

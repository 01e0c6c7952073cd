// Package stream implements Server-Sent Events (SSE) streaming of countdown
// state for observing sessions. Clients connect via
// GET /api/v1/sessions/{id}/stream and receive one message per engine tick,
// plus discrete alert events.
//
// SSE message format:
//
//	data: {"type":"state","state":{...}}\n\n
//	data: {"type":"alert","alert":{...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","session_id":"...","eclipse_id":"...","is_total":true}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/Johannes1979I/eclipse-commander-v4/internal/countdown"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/metrics"
	"github.com/Johannes1979I/eclipse-commander-v4/internal/session"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
}

// Handler manages SSE streaming connections.
type Handler struct {
	sessions *session.Manager
	config   Config
	limiter  *watcherLimiter
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(sessions *session.Manager, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		config:   config,
		limiter:  newWatcherLimiter(config.MaxConcurrentPerIP),
		logger:   logger,
	}
}

// HandleSessionStream serves the countdown stream for one session.
// GET /api/v1/sessions/{id}/stream
func (h *Handler) HandleSessionStream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		return
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := clientIP(r)
	if !h.limiter.admit(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.active(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"session_id", sess.ID,
		"user_agent", r.Header.Get("User-Agent"),
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.leave(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"session_id", sess.ID,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Use ResponseController to manage write deadlines for long-lived SSE.
	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	// Send metadata message (first message on every connection).
	meta := metadataMessage{
		Type:      "metadata",
		SessionID: sess.ID,
		EclipseID: sess.EclipseID,
		IsTotal:   sess.Contacts.IsTotal,
		StartedAt: sess.StartedAt.UTC().Format(time.RFC3339),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	events, cancel := sess.Subscribe()
	defer cancel()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-sess.Done():
			// Session stopped server-side; tell the client not to retry.
			c.sendJSON(closedMessage{Type: "closed"})
			return

		case ev, ok := <-events:
			if !ok {
				c.sendJSON(closedMessage{Type: "closed"})
				return
			}
			if err := c.sendJSON(stateMessage{Type: "state", State: ev.State}); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			for _, a := range ev.Alerts {
				if err := c.sendJSON(alertMessage{Type: "alert", Alert: a}); err != nil {
					metrics.IncStreamErrors("send_error")
					h.logger.Warn("stream send error (alert)", "remote_ip", ip, "error", err)
					return
				}
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	EclipseID string `json:"eclipse_id"`
	IsTotal   bool   `json:"is_total"`
	StartedAt string `json:"started_at"`
}

type stateMessage struct {
	Type  string          `json:"type"`
	State countdown.State `json:"state"`
}

type alertMessage struct {
	Type  string          `json:"type"`
	Alert countdown.Alert `json:"alert"`
}

type closedMessage struct {
	Type string `json:"type"`
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
// Routes live at the root: consumers of the original gateway depend on
// these exact paths.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/health", s.handleHealth)

	// Session lifecycle
	r.Post("/start-session", s.handleStartSession)
	r.Post("/reconnect-session", s.handleReconnectSession)
	r.Get("/check-session/{sessionId}", s.handleCheckSession)
	r.Get("/list-sessions", s.handleListSessions)

	// Messaging
	r.Post("/send-message", s.handleSendMessage)

	// Session event stream
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.controller.Registry().Count(),
	})
}

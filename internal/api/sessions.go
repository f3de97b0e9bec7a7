package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/relay-core/internal/session"
)

// startSessionResponse is returned by POST /start-session and carries the
// session token plus the first handshake outcome. QR is a PNG data URL,
// present only when the handshake paused at the scan step.
type startSessionResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	QR        string `json:"qr,omitempty"`
}

// sendMessageRequest is the body of POST /send-message.
type sendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Number    string `json:"number"`
	Message   string `json:"message"`
}

// reconnectRequest is the body of POST /reconnect-session.
type reconnectRequest struct {
	SessionID string `json:"sessionId"`
}

// checkSessionResponse is returned by GET /check-session/{sessionId} for a
// live session. Number and Name are populated only when the session is ready.
type checkSessionResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Number  string `json:"number,omitempty"`
	Name    string `json:"name,omitempty"`
}

// reconnectResponse is returned by POST /reconnect-session.
type reconnectResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	QR      string `json:"qr,omitempty"`
}

// handleStartSession provisions a fresh session and blocks until the
// handshake yields its first outcome: a QR code to scan, or ready when
// stored credentials short-circuit the scan.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, outcome, err := s.controller.StartSession(r.Context())
	if err != nil {
		s.logger.Error("start session failed", "error", err)
		writeInternalError(w, "failed to start session")
		return
	}

	resp := startSessionResponse{SessionID: id}
	switch outcome.Status {
	case session.StatusAwaitingScan:
		dataURL, err := qrDataURL(outcome.QR)
		if err != nil {
			s.logger.Error("qr encoding failed", "error", err)
			writeInternalError(w, "failed to encode QR code")
			return
		}
		resp.Status = "qr"
		resp.QR = dataURL
	default:
		resp.Status = "ready"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSendMessage delivers a text message through a live session.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Number == "" || req.Message == "" {
		writeBadRequest(w, "sessionId, number and message are required")
		return
	}

	err := s.controller.Send(r.Context(), req.SessionID, req.Number, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Result{Status: true, Message: "Message sent successfully"})
	case errors.Is(err, session.ErrSessionNotFound):
		writeNotFound(w, "Session not found")
	case errors.Is(err, session.ErrNotConnected):
		writeInternalError(w, "Session is not connected")
	default:
		s.logger.Error("send message failed", "session", req.SessionID, "error", err)
		writeInternalError(w, "Failed to send message")
	}
}

// handleCheckSession reports whether a session exists and is ready.
// Unknown ids are 404; a known session that has not finished its handshake
// answers 200 with status false.
func (s *Server) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")

	h, ok := s.controller.Registry().Get(id)
	if !ok {
		writeNotFound(w, "Session not found")
		return
	}

	ident, known := h.Identity()
	if h.Status() != session.StatusReady || !known {
		writeJSON(w, http.StatusOK, checkSessionResponse{
			Status:  false,
			Message: "Session is not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, checkSessionResponse{
		Status:  true,
		Message: "Session is active",
		Number:  ident.PhoneNumber,
		Name:    ident.DisplayName,
	})
}

// handleReconnectSession re-establishes a session from its stored
// credentials. The session must have been provisioned before; ids with no
// credential record are 404.
func (s *Server) handleReconnectSession(w http.ResponseWriter, r *http.Request) {
	var req reconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeBadRequest(w, "sessionId is required")
		return
	}

	outcome, err := s.controller.Reconnect(r.Context(), req.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNoCredentials), errors.Is(err, session.ErrInvalidSession):
		writeNotFound(w, "Session not found")
		return
	case errors.Is(err, session.ErrAuthFailed):
		s.logger.Warn("reconnect auth failure", "session", req.SessionID)
		writeInternalError(w, "Session authentication failed")
		return
	default:
		s.logger.Error("reconnect failed", "session", req.SessionID, "error", err)
		writeInternalError(w, "Failed to reconnect session")
		return
	}

	resp := reconnectResponse{Status: true}
	switch outcome.Status {
	case session.StatusAwaitingScan:
		dataURL, err := qrDataURL(outcome.QR)
		if err != nil {
			s.logger.Error("qr encoding failed", "error", err)
			writeInternalError(w, "failed to encode QR code")
			return
		}
		resp.Message = "Scan the QR code to reconnect"
		resp.QR = dataURL
	default:
		resp.Message = "Session reconnected"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListSessions returns a summary of every live session. Sessions
// still in their handshake list with "N/A" identity placeholders.
func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Registry().List())
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Status represents the lifecycle state of a session handle.
type Status string

const (
	// StatusInitializing means the handshake has been triggered but the
	// client has not yet emitted a QR or ready event.
	StatusInitializing Status = "initializing"

	// StatusAwaitingScan means a QR code has been issued and the session
	// is waiting for it to be scanned.
	StatusAwaitingScan Status = "awaiting_scan"

	// StatusReady means the client is authenticated and connected.
	StatusReady Status = "ready"

	// StatusDisconnected is the terminal state; the handle has been (or
	// is being) removed from the registry.
	StatusDisconnected Status = "disconnected"
)

// Sentinel errors for session operations. API handlers map these to
// transport status codes with errors.Is.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoCredentials   = errors.New("no credential record for session")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrNotConnected    = errors.New("session not connected")
	ErrInvalidSession  = errors.New("invalid session id")
)

// Identity is the connected-account snapshot cached on the ready event.
// It is never queried live from the client after that point, so the core's
// view of a session stays self-contained.
type Identity struct {
	PhoneNumber string
	DisplayName string
}

// Summary is the list-sessions projection of a handle.
type Summary struct {
	SessionID string `json:"sessionId"`
	Number    string `json:"number"`
	Name      string `json:"name"`
}

// Handle wraps one external client instance together with its derived
// status and identity snapshot. Handles are owned by the Registry; the
// immutable fields (id, client) are set before the handle is published,
// and the mutable fields are updated only through the synchronized
// setters below.
type Handle struct {
	id     string
	client Client

	mu            sync.RWMutex
	status        Status
	identity      *Identity
	qrPayload     string
	authenticated bool

	// sendMu serializes sends so two logical operations never interleave
	// on the client's wire protocol.
	sendMu sync.Mutex
}

// NewHandle creates a handle in the initializing state.
func NewHandle(id string, client Client) *Handle {
	return &Handle{
		id:     id,
		client: client,
		status: StatusInitializing,
	}
}

// ID returns the session identifier.
func (h *Handle) ID() string { return h.id }

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Identity returns the cached account snapshot, if the session has
// reached the ready state.
func (h *Handle) Identity() (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.identity == nil {
		return Identity{}, false
	}
	return *h.identity, true
}

// QR returns the most recent QR payload issued for this handle.
func (h *Handle) QR() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.qrPayload
}

// Authenticated reports whether the client has emitted its authenticated
// event during the current handshake.
func (h *Handle) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.authenticated
}

// Send delivers a message through the underlying client. Sends are
// serialized per handle; a second send arriving while one is in flight
// waits. Returns ErrNotConnected if the session has not reached ready.
func (h *Handle) Send(ctx context.Context, target, body string) error {
	if h.Status() != StatusReady {
		return ErrNotConnected
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if err := h.client.SendMessage(ctx, target, body); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// setAwaitingScan records a QR emission. A rotated QR while already
// awaiting scan updates the cached payload only; a QR arriving after the
// session went ready is dropped (stale event).
func (h *Handle) setAwaitingScan(payload string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusReady || h.status == StatusDisconnected {
		return
	}
	h.status = StatusAwaitingScan
	h.qrPayload = payload
}

// markAuthenticated records the informational authenticated event.
func (h *Handle) markAuthenticated() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authenticated = true
}

// setReady transitions the handle to ready and snapshots the account
// identity reported by the client.
func (h *Handle) setReady(ident Identity, known bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusDisconnected {
		return
	}
	h.status = StatusReady
	h.qrPayload = ""
	if known {
		h.identity = &ident
	}
}

// setDisconnected marks the terminal state and clears the identity
// snapshot.
func (h *Handle) setDisconnected() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = StatusDisconnected
	h.identity = nil
	h.qrPayload = ""
}

// summary projects the handle for list output. Identity fields fall back
// to "N/A" while the handshake is pending.
func (h *Handle) summary() Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Summary{
		SessionID: h.id,
		Number:    "N/A",
		Name:      "N/A",
	}
	if h.identity != nil {
		s.Number = h.identity.PhoneNumber
		s.Name = h.identity.DisplayName
	}
	return s
}

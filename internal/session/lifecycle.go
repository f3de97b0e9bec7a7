package session

import (
	"context"
	"fmt"
	"sync"
)

// Notifier receives session lifecycle events for fan-out (e.g. to the
// WebSocket hub). The zero value used when none is set drops events.
type Notifier interface {
	Broadcast(channel string, payload any)
}

// noopNotifier drops all events.
type noopNotifier struct{}

func (noopNotifier) Broadcast(string, any) {}

// Event stream channels published through the Notifier.
const (
	EventQR           = "session.qr"
	EventReady        = "session.ready"
	EventDisconnected = "session.disconnected"
)

// Controller drives external clients through their asynchronous handshake
// and wires their later-life events back into registry mutation. One
// controller serves all sessions; per-attempt state lives in the pending
// future each launch installs, and launches for one id are serialized.
type Controller struct {
	registry *Registry
	store    *Store
	factory  ClientFactory
	logger   Logger
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*idLock
}

// idLock serializes launch attempts for one session id. Refcounted so the
// map does not accumulate an entry per token ever issued.
type idLock struct {
	sync.Mutex
	refs int
}

// NewController creates a lifecycle controller.
func NewController(registry *Registry, store *Store, factory ClientFactory) *Controller {
	return &Controller{
		registry: registry,
		store:    store,
		factory:  factory,
		logger:   noopLogger{},
		notifier: noopNotifier{},
		locks:    make(map[string]*idLock),
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetNotifier sets the event fan-out sink.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// Registry exposes the controller's registry for read-side consumers.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// StartSession provisions a brand-new session: generates a token, creates
// its credential directory, and runs the handshake until the first QR or
// ready event. The returned id is valid even if the caller abandons the
// wait; the handle stays registered and keeps progressing.
func (c *Controller) StartSession(ctx context.Context) (string, Outcome, error) {
	id := NewToken()

	if err := c.store.EnsureCreated(id); err != nil {
		return "", Outcome{}, err
	}

	unlock := c.lockID(id)
	p, err := c.launch(ctx, id)
	unlock()
	if err != nil {
		return "", Outcome{}, err
	}

	outcome, err := p.wait(ctx)
	if err != nil {
		return "", Outcome{}, err
	}
	return id, outcome, nil
}

// Reconnect re-establishes a previously provisioned session from its
// credential record. Returns ErrNoCredentials if the session was never
// provisioned. A live handle for the id is destroyed first, so the same
// id never has two external clients.
func (c *Controller) Reconnect(ctx context.Context, id string) (Outcome, error) {
	if _, err := c.store.PathFor(id); err != nil {
		return Outcome{}, err
	}
	if !c.store.Exists(id) {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoCredentials, logToken(id))
	}

	// Teardown and relaunch are one critical section per id: two
	// concurrent reconnects must not both pass teardown before either
	// inserts, or the displaced handle's client leaks undestroyed.
	unlock := c.lockID(id)
	c.teardown(id, "reconnect requested")
	p, err := c.launch(ctx, id)
	unlock()
	if err != nil {
		return Outcome{}, err
	}

	return p.wait(ctx)
}

// Send delivers a message through a live session. The target address is
// number + ChatSuffix; number is expected as international-format digits
// without a leading symbol.
func (c *Controller) Send(ctx context.Context, id, number, body string) error {
	h, ok := c.registry.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	return h.Send(ctx, number+ChatSuffix, body)
}

// Shutdown destroys every live client and empties the registry. Called
// once during process teardown.
func (c *Controller) Shutdown() {
	handles := c.registry.drain()
	for _, h := range handles {
		h.setDisconnected()
		if err := h.client.Destroy(); err != nil {
			c.logger.Warn("destroying client on shutdown", "session", logToken(h.ID()), "error", err)
		}
	}
	if len(handles) > 0 {
		c.logger.Info("sessions destroyed on shutdown", "count", len(handles))
	}
}

// lockID acquires the launch lock for a session id. The returned func
// releases it and drops the map entry once no attempt holds or awaits it.
func (c *Controller) lockID(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &idLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}

// launch runs one handshake attempt for id up to the connect trigger.
// The handle is registered in the initializing state before the client's
// connect procedure is triggered, so concurrent lookups see the session
// exists before any network activity. Callers hold the id lock; waiting
// on the returned pending happens outside it, so a slow handshake never
// blocks the lock. The pending's single resolution is the first QR
// payload, or ready.
func (c *Controller) launch(ctx context.Context, id string) (*pending, error) {
	credPath, err := c.store.PathFor(id)
	if err != nil {
		return nil, err
	}

	p := newPending()

	// h is assigned before Insert and before Initialize; events cannot
	// fire until Initialize triggers the connect procedure.
	var h *Handle

	handlers := EventHandlers{
		OnQR: func(payload string) {
			h.setAwaitingScan(payload)
			if p.resolve(Outcome{Status: StatusAwaitingScan, QR: payload}) {
				c.logger.Info("qr issued", "session", logToken(id))
			} else {
				// Rotation of an unscanned code: cached payload already
				// updated above, nothing to resolve.
				c.logger.Debug("qr rotated", "session", logToken(id))
			}
			c.notifier.Broadcast(EventQR, map[string]any{"session_id": id})
		},
		OnAuthenticated: func() {
			h.markAuthenticated()
			c.logger.Info("session authenticated", "session", logToken(id))
		},
		OnReady: func() {
			ident, known := h.client.Info()
			h.setReady(ident, known)
			p.resolve(Outcome{Status: StatusReady})
			c.logger.Info("session ready", "session", logToken(id), "number", ident.PhoneNumber)
			c.notifier.Broadcast(EventReady, map[string]any{
				"session_id": id,
				"number":     ident.PhoneNumber,
				"name":       ident.DisplayName,
			})
		},
		OnAuthFailure: func(reason string) {
			p.reject(fmt.Errorf("%w: %s", ErrAuthFailed, reason))
			c.logger.Warn("session auth failure", "session", logToken(id), "reason", reason)
			c.teardownHandle(h, reason)
		},
		OnDisconnected: func(reason string) {
			// Terminal transition; may fire long after the handshake
			// resolved and needs no pending-outcome interaction.
			c.logger.Info("session disconnected", "session", logToken(id), "reason", reason)
			c.teardownHandle(h, reason)
		},
	}

	client, err := c.factory(credPath, handlers)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	h = NewHandle(id, client)
	c.registry.Insert(h)

	if err := client.Initialize(ctx); err != nil {
		// Release the partially-constructed entry so no zombie
		// initializing handle survives a failed trigger.
		c.teardownHandle(h, "initialize failed")
		return nil, fmt.Errorf("initializing client: %w", err)
	}

	return p, nil
}

// teardown removes whatever handle is live for the session id and
// destroys its client. Used by the relaunch path, under the id lock.
func (c *Controller) teardown(id, reason string) {
	h, ok := c.registry.Remove(id)
	if !ok {
		return
	}
	c.destroyHandle(h, reason)
}

// teardownHandle removes h only if it is still the registered handle for
// its id. Event callbacks use this form: a late disconnect from a
// replaced client must not evict the replacement a reconnect installed.
func (c *Controller) teardownHandle(h *Handle, reason string) {
	if !c.registry.RemoveHandle(h) {
		return
	}
	c.destroyHandle(h, reason)
}

// destroyHandle finishes a teardown after the registry entry is gone.
// Destroying an already-destroyed client is a no-op, so teardown stays
// safe to trigger from any event path, repeatedly.
func (c *Controller) destroyHandle(h *Handle, reason string) {
	h.setDisconnected()
	if err := h.client.Destroy(); err != nil {
		c.logger.Warn("destroying client", "session", logToken(h.ID()), "error", err)
	}
	c.notifier.Broadcast(EventDisconnected, map[string]any{
		"session_id": h.ID(),
		"reason":     reason,
	})
}

// logToken truncates a session token for logging. Tokens are bearer
// credentials and never appear whole in logs.
func logToken(id string) string {
	const visible = 8
	if len(id) <= visible {
		return id
	}
	return id[:visible] + "..."
}

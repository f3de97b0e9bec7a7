package session

import "context"

// ChatSuffix is appended to an international-format number (digits only,
// no leading +) to form the client's target chat address.
const ChatSuffix = "@c.us"

// Client is the external messaging-protocol client backing one session.
// Implementations drive a browser-automation runtime; the session core
// treats them as an opaque event source plus three methods.
type Client interface {
	// Initialize triggers the asynchronous connect/handshake procedure.
	// Lifecycle outcomes arrive through the EventHandlers the client was
	// constructed with; an error here means the attempt could not even be
	// started (e.g. the runner failed to spawn).
	Initialize(ctx context.Context) error

	// SendMessage delivers body to the target chat address and blocks
	// until the client confirms or fails the send.
	SendMessage(ctx context.Context, target, body string) error

	// Info returns the connected-account identity once known.
	Info() (Identity, bool)

	// Destroy tears the client down and releases its resources.
	// Destroying an already-destroyed client is a no-op, not an error.
	Destroy() error
}

// EventHandlers receives lifecycle events from a Client. For a given
// client, handlers are invoked sequentially in emission order; handlers
// for different clients may run concurrently. Nil handlers are skipped.
type EventHandlers struct {
	// OnQR is invoked for each QR payload, including rotations of an
	// unscanned code.
	OnQR func(payload string)

	// OnAuthenticated is invoked when the remote side accepts the
	// credentials. Informational only.
	OnAuthenticated func()

	// OnReady is invoked when the client is connected and usable.
	OnReady func()

	// OnAuthFailure is invoked when the remote side rejects the
	// credentials. The client is unusable afterwards.
	OnAuthFailure func(reason string)

	// OnDisconnected is invoked on logout or client crash. It can fire
	// at any point after Initialize, including long after the session
	// went ready.
	OnDisconnected func(reason string)
}

// ClientFactory constructs a Client bound to a credential path, with the
// given handlers installed before any event can fire.
type ClientFactory func(credentialPath string, handlers EventHandlers) (Client, error)

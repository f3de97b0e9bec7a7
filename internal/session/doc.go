// Package session implements the session lifecycle core of Relay Core.
//
// A session is one logical connection between this service and a single
// messaging account. Each session is backed by an external protocol client
// (see Client) that performs an asynchronous handshake: a QR code is
// emitted for pairing, the remote side authenticates, and the client
// becomes ready. A session can terminate at any point afterwards due to
// remote logout, authentication failure, or a client crash.
//
// The package provides:
//
//   - NewToken: unguessable session identifiers (the sole API credential)
//   - Store: filesystem-presence adapter for persisted credentials
//   - Registry: concurrent map of live session handles
//   - Controller: drives handshakes and wires client events into the
//     registry (see Controller.StartSession, Controller.Reconnect)
//
// # Concurrency
//
// The Registry is the only shared mutable state; all mutations go through
// its lock. Handle status and identity are mutated only by the event
// handlers the Controller installs, which the client invokes in emission
// order. Sends on one session are serialized by the handle.
//
// Thread Safety: all exported types are safe for concurrent use.
package session

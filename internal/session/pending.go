package session

import (
	"context"
	"sync"
)

// Outcome is the first interesting result of a handshake attempt: either
// a QR code awaiting scan, or a ready session (credentials were still
// valid and no pairing was needed).
type Outcome struct {
	Status Status
	QR     string
}

// pending is the one-shot future for a handshake attempt. It resolves or
// rejects exactly once; later events on the same client flow into the
// handle instead. This decouples the caller's wait for the first
// interesting event from the handle's entire mutation stream, which is
// what makes a late disconnect safe to deliver after the handshake
// resolved.
type pending struct {
	once    sync.Once
	done    chan struct{}
	outcome Outcome
	err     error
}

func newPending() *pending {
	return &pending{done: make(chan struct{})}
}

// resolve completes the future with an outcome. Returns false if the
// future was already settled (e.g. a rotated QR after the first one).
func (p *pending) resolve(o Outcome) bool {
	settled := false
	p.once.Do(func() {
		p.outcome = o
		close(p.done)
		settled = true
	})
	return settled
}

// reject completes the future with an error. Returns false if the future
// was already settled.
func (p *pending) reject(err error) bool {
	settled := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// wait blocks until the future settles or the context is cancelled.
// Cancellation abandons the wait only; the handshake itself continues and
// the handle stays registered.
func (p *pending) wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, p.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

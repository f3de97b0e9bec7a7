package session

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the concurrent map of live session handles and the single
// authority for lifecycle transitions and enumeration.
//
// Readers never observe a handle mid-construction: handles are fully
// formed before Insert publishes them, and only the handle's own
// synchronized setters mutate state afterwards. Per-key mutations are
// atomic with respect to Get/List; cross-key operations have no global
// ordering.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	logger  Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Insert publishes a handle under its session id, replacing any previous
// entry. Callers tear down an existing handle before re-inserting; the
// registry itself only swaps the map entry.
func (r *Registry) Insert(h *Handle) {
	r.mu.Lock()
	r.handles[h.ID()] = h
	r.mu.Unlock()

	r.logger.Debug("session registered", "session", h.ID())
}

// Get returns the live handle for a session id.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Remove deletes the entry for a session id and returns the removed
// handle so the caller can destroy its client. Removing an absent id is
// a no-op.
func (r *Registry) Remove(id string) (*Handle, bool) {
	r.mu.Lock()
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()

	if ok {
		r.logger.Debug("session removed", "session", id)
	}
	return h, ok
}

// RemoveHandle deletes the entry for h's id only if h is still the
// registered handle. Returns false when the entry is absent or already
// belongs to a replacement.
func (r *Registry) RemoveHandle(h *Handle) bool {
	r.mu.Lock()
	cur, ok := r.handles[h.ID()]
	if !ok || cur != h {
		r.mu.Unlock()
		return false
	}
	delete(r.handles, h.ID())
	r.mu.Unlock()

	r.logger.Debug("session removed", "session", h.ID())
	return true
}

// List projects every live handle to its summary. The projection uses
// whatever identity snapshot is currently cached; it never blocks on a
// pending handshake. Output is sorted by session id for stable responses.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	summaries := make([]Summary, 0, len(handles))
	for _, h := range handles {
		summaries = append(summaries, h.summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SessionID < summaries[j].SessionID
	})
	return summaries
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// drain removes and returns all handles. Used during shutdown teardown.
func (r *Registry) drain() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*Handle, 0, len(r.handles))
	for id, h := range r.handles {
		handles = append(handles, h)
		delete(r.handles, id)
	}
	return handles
}

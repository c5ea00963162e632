package collab

import (
	"context"
	"sync"
)

// SessionHandler receives dispatched events for one session.
type SessionHandler func(event string, payload any)

// MemSessionRegistry is an in-memory SessionRegistry reference
// implementation: sessions register a handler (or are dropped), and
// Dispatch is a no-op delivery for any session that never registered or
// that has since been removed.
type MemSessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]SessionHandler
}

func NewMemSessionRegistry() *MemSessionRegistry {
	return &MemSessionRegistry{sessions: map[string]SessionHandler{}}
}

var _ SessionRegistry = (*MemSessionRegistry)(nil)

// Connect registers a session's handler and returns a cancel func that
// removes it.
func (r *MemSessionRegistry) Connect(sessionID string, handler SessionHandler) (cancel func()) {
	r.mu.Lock()
	r.sessions[sessionID] = handler
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.sessions, sessionID)
		r.mu.Unlock()
	}
}

func (r *MemSessionRegistry) Dispatch(_ context.Context, sessionID string, event string, payload any) (bool, error) {
	r.mu.RLock()
	handler, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return false, nil
	}

	handler(event, payload)
	return true, nil
}

// internal/browser/registry.go
package browser

import "sync"

// SessionRegistry maps execution contexts to their single live session.
// It is a concurrency-safe keyed store and nothing more.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[ExecutionContext]*SessionHandle
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[ExecutionContext]*SessionHandle)}
}

// Set registers h for ec. A context that already owns a session is rejected;
// the old handle must be removed first.
func (r *SessionRegistry) Set(ec ExecutionContext, h *SessionHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[ec]; exists {
		return NewError(KindNone, "register", ec, ErrAlreadyRegistered)
	}
	r.sessions[ec] = h
	return nil
}

// Get returns the session owned by ec, or SessionNotInitialized.
func (r *SessionRegistry) Get(ec ExecutionContext) (*SessionHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[ec]
	if !ok {
		return nil, NewError(KindSessionNotInitialized, "lookup", ec, nil)
	}
	return h, nil
}

// Has reports whether ec owns a session.
func (r *SessionRegistry) Has(ec ExecutionContext) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[ec]
	return ok
}

// Remove unregisters and returns the session owned by ec.
func (r *SessionRegistry) Remove(ec ExecutionContext) (*SessionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[ec]
	if ok {
		delete(r.sessions, ec)
	}
	return h, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain atomically empties the registry and returns what it held.
func (r *SessionRegistry) Drain() map[ExecutionContext]*SessionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := r.sessions
	r.sessions = make(map[ExecutionContext]*SessionHandle)
	return drained
}

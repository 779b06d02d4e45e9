package transport

import (
	"context"
	"sync"
)

// InFlightRegistry maps session ids to the cancel function of their
// running turn. A session has at most one entry.
type InFlightRegistry struct {
	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

// NewInFlightRegistry returns an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{runs: map[string]context.CancelFunc{}}
}

// Register claims the session for one run. It reports false when the
// session is already claimed; cancel is then not stored.
func (r *InFlightRegistry) Register(sessionID string, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.runs[sessionID]; busy {
		return false
	}
	r.runs[sessionID] = cancel
	return true
}

// Cancel stops the session's run and releases the claim. It reports
// whether a run was registered.
func (r *InFlightRegistry) Cancel(sessionID string) bool {
	cancel := r.take(sessionID)
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Remove releases the claim without cancelling.
func (r *InFlightRegistry) Remove(sessionID string) {
	r.take(sessionID)
}

// Len reports the number of claimed sessions.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *InFlightRegistry) take(sessionID string) context.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel := r.runs[sessionID]
	delete(r.runs, sessionID)
	return cancel
}

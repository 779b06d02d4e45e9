package session

import (
	"container/list"
	"log/slog"
	"sync"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/observability"
)

type entry struct {
	sess    *Session
	lruElem *list.Element
}

// Manager keeps sessions by id. When maxSize is positive the least
// recently used session is closed and dropped once the limit is reached.
type Manager struct {
	runner   Runner
	maxInput int

	mu      sync.Mutex
	entries map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int
}

// NewManager creates a Manager whose sessions run on runner.
func NewManager(runner Runner, maxSize, maxInput int) *Manager {
	return &Manager{
		runner:   runner,
		maxInput: maxInput,
		entries:  make(map[string]*entry),
		lruList:  list.New(),
		maxSize:  maxSize,
	}
}

// Create starts a session for the named user.
func (m *Manager) Create(name string) (*Session, error) {
	if apiErr := api.ValidateName(name); apiErr != nil {
		return nil, apiErr
	}
	s := New(name, m.runner, m.maxInput)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictOldest()
	}
	m.entries[s.id] = &entry{sess: s, lruElem: m.lruList.PushFront(s.id)}
	observability.ActiveSessions.Set(float64(len(m.entries)))

	slog.Info("session created", "session_id", s.id)
	return s, nil
}

// Get returns the session with the given id and marks it recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.lruList.MoveToFront(e.lruElem)
	return e.sess, nil
}

// Delete closes and drops a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	m.remove(id, e)
	slog.Info("session deleted", "session_id", id)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		m.remove(id, e)
	}
}

// evictOldest removes the least recently used session.
// Must be called with m.mu held.
func (m *Manager) evictOldest() {
	back := m.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	slog.Info("session evicted", "session_id", id)
	m.remove(id, m.entries[id])
}

// Must be called with m.mu held.
func (m *Manager) remove(id string, e *entry) {
	e.sess.Close()
	m.lruList.Remove(e.lruElem)
	delete(m.entries, id)
	observability.ActiveSessions.Set(float64(len(m.entries)))
}

package session

import (
	"context"
	"errors"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/transport"
)

var (
	_ transport.TurnHandler  = (*Manager)(nil)
	_ transport.SessionStore = (*Manager)(nil)
)

// HandleTurn runs one turn of the addressed session. Every appended turn
// is passed to req.OnTurn when set.
func (m *Manager) HandleTurn(ctx context.Context, req *transport.TurnRequest) (*api.Turn, error) {
	s, err := m.Get(req.SessionID)
	if err != nil {
		return nil, toAPIError(err, req.SessionID)
	}
	turn, err := s.AskStream(ctx, req.Content, req.OnTurn)
	if err != nil {
		return nil, toAPIError(err, req.SessionID)
	}
	return turn, nil
}

// CreateSession opens a session and runs its introduction turn.
func (m *Manager) CreateSession(ctx context.Context, name string) (*transport.SessionInfo, error) {
	s, err := m.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := s.Introduce(ctx); err != nil {
		m.Delete(s.ID())
		return nil, toAPIError(err, s.ID())
	}
	return infoOf(s), nil
}

// GetSession returns the session with its full transcript.
func (m *Manager) GetSession(_ context.Context, id string) (*transport.SessionInfo, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, toAPIError(err, id)
	}
	return infoOf(s), nil
}

// DeleteSession closes and forgets a session.
func (m *Manager) DeleteSession(_ context.Context, id string) error {
	if err := m.Delete(id); err != nil {
		return toAPIError(err, id)
	}
	return nil
}

func infoOf(s *Session) *transport.SessionInfo {
	return &transport.SessionInfo{
		ID:        s.ID(),
		Name:      s.Name(),
		CreatedAt: s.CreatedAt(),
		Turns:     s.Turns(),
	}
}

// toAPIError maps session errors onto the API taxonomy. Other errors are
// returned unchanged for transport.APIErrorFrom.
func toAPIError(err error, id string) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrClosed):
		return api.NewNotFoundError("session " + id + " not found")
	case errors.Is(err, ErrBusy):
		return api.NewConflictError("session_busy", "session "+id+" is already running a turn")
	default:
		return err
	}
}

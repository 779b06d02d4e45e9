package transport

import (
	"context"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
)

// TurnRequest asks a session for its next answer.
type TurnRequest struct {
	SessionID string
	Content   string

	// OnTurn, when set, receives every turn appended during the run,
	// including the user turn.
	OnTurn func(api.Turn)
}

// TurnHandler runs one user turn. The returned turn is the final
// assistant turn of the run.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req *TurnRequest) (*api.Turn, error)
}

// TurnHandlerFunc is an adapter that allows using an ordinary function as
// a TurnHandler.
type TurnHandlerFunc func(ctx context.Context, req *TurnRequest) (*api.Turn, error)

// HandleTurn calls f(ctx, req).
func (f TurnHandlerFunc) HandleTurn(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
	return f(ctx, req)
}

// SessionInfo describes a session on the wire.
type SessionInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	Turns     []api.Turn `json:"turns,omitempty"`
}

// SessionStore manages session lifecycles. Lookups of unknown ids return
// an *api.APIError of type not_found.
type SessionStore interface {
	CreateSession(ctx context.Context, name string) (*SessionInfo, error)

	// GetSession returns the session with its transcript.
	GetSession(ctx context.Context, id string) (*SessionInfo, error)

	DeleteSession(ctx context.Context, id string) error
}

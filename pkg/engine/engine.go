package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/oracle"
)

// ErrNoUserTurn is returned by Run when the transcript does not end with a
// user turn.
var ErrNoUserTurn = errors.New("transcript does not end with a user turn")

// Dispatcher resolves and runs capability requests. *capability.Registry
// implements it.
type Dispatcher interface {
	Has(name string) bool
	Declarations() []capability.Declaration
	Dispatch(ctx context.Context, req api.CapabilityRequest) (string, error)
}

var _ Dispatcher = (*capability.Registry)(nil)

// Engine runs transcripts against an oracle and a capability registry.
// It holds no per-session state and is safe for concurrent use across
// sessions.
type Engine struct {
	oracle oracle.Oracle
	caps   Dispatcher
	cfg    Config
}

// New creates an Engine. The oracle and dispatcher must not be nil.
func New(o oracle.Oracle, caps Dispatcher, cfg Config) (*Engine, error) {
	if o == nil {
		return nil, fmt.Errorf("engine: oracle must not be nil")
	}
	if caps == nil {
		return nil, fmt.Errorf("engine: dispatcher must not be nil")
	}
	return &Engine{oracle: o, caps: caps, cfg: cfg}, nil
}

// Oracle returns the oracle the engine asks.
func (e *Engine) Oracle() oracle.Oracle { return e.oracle }

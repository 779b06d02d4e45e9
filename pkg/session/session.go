package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/storage"
)

var (
	// ErrBusy is returned by Ask while another run of the same session is
	// in flight.
	ErrBusy = errors.New("session busy")

	// ErrClosed is returned by Ask after Close or after a run left
	// capability requests unanswered.
	ErrClosed = errors.New("session closed")

	// ErrNotFound is returned by Manager lookups for unknown ids.
	ErrNotFound = errors.New("session not found")
)

// Runner runs a transcript to its next final answer. *engine.Engine
// implements it.
type Runner interface {
	Run(ctx context.Context, tr *api.Transcript) (*api.Turn, error)
}

// Session is one conversation.
type Session struct {
	id        string
	name      string
	createdAt time.Time
	runner    Runner
	maxInput  int

	// run serializes Ask; it guards transcript.
	run        sync.Mutex
	transcript *api.Transcript

	// view guards the published snapshot and closed.
	view     sync.RWMutex
	snapshot []api.Turn
	closed   bool
}

// New creates a session with a fresh id.
func New(name string, runner Runner, maxInput int) *Session {
	return &Session{
		id:         uuid.NewString(),
		name:       name,
		createdAt:  time.Now().UTC(),
		runner:     runner,
		maxInput:   maxInput,
		transcript: &api.Transcript{},
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Name returns the user name given at creation.
func (s *Session) Name() string { return s.name }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Introduce tells the oracle the user's name as the first user turn.
func (s *Session) Introduce(ctx context.Context) (*api.Turn, error) {
	return s.Ask(ctx, fmt.Sprintf("My name is %s.", s.name))
}

// Ask appends a user turn and runs the transcript to the next answer.
// The user turn stays in the transcript even when the run fails. A run
// that fails with capability requests still unanswered, as on
// cancellation during dispatch, closes the session.
func (s *Session) Ask(ctx context.Context, content string) (*api.Turn, error) {
	return s.AskStream(ctx, content, nil)
}

// AskStream is like Ask and calls onTurn with every turn appended during
// the run, the user turn included, from the calling goroutine.
func (s *Session) AskStream(ctx context.Context, content string, onTurn func(api.Turn)) (*api.Turn, error) {
	if apiErr := api.ValidateUserInput(content, s.maxInput); apiErr != nil {
		return nil, apiErr
	}
	if !s.run.TryLock() {
		return nil, ErrBusy
	}
	defer s.run.Unlock()

	if s.isClosed() {
		return nil, ErrClosed
	}

	s.transcript.Observe(func(t api.Turn) {
		s.publish()
		if onTurn != nil {
			onTurn(t)
		}
	})
	defer s.transcript.Observe(nil)

	if err := s.transcript.Append(api.NewUserTurn(content)); err != nil {
		return nil, fmt.Errorf("appending user turn: %w", err)
	}

	ctx = storage.WithSession(ctx, s.id)
	turn, err := s.runner.Run(ctx, s.transcript)
	if err != nil {
		slog.Debug("run failed", "session_id", s.id, "error", err)
		if pending := s.transcript.Pending(); len(pending) > 0 {
			// Requests without results cannot be replayed to the oracle.
			slog.Info("closing session with unanswered capability requests",
				"session_id", s.id, "pending", len(pending), "error", err)
			s.Close()
		}
		return nil, err
	}
	return turn, nil
}

// Turns returns the transcript up to its last appended turn. It does not
// wait for a run in flight.
func (s *Session) Turns() []api.Turn {
	s.view.RLock()
	defer s.view.RUnlock()
	out := make([]api.Turn, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Dialogue is like Turns but omits deferral-only assistant turns.
func (s *Session) Dialogue() []api.Turn {
	return api.DialogueOf(s.Turns())
}

// Close marks the session closed. Runs in flight finish; later calls to
// Ask fail with ErrClosed.
func (s *Session) Close() {
	s.view.Lock()
	s.closed = true
	s.view.Unlock()
}

func (s *Session) isClosed() bool {
	s.view.RLock()
	defer s.view.RUnlock()
	return s.closed
}

func (s *Session) publish() {
	turns := s.transcript.Turns()
	s.view.Lock()
	s.snapshot = turns
	s.view.Unlock()
}

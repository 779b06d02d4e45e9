package api

import (
	"errors"
	"fmt"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem           Role = "system"
	RoleUser             Role = "user"
	RoleAssistant        Role = "assistant"
	RoleCapabilityResult Role = "capability-result"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleCapabilityResult:
		return true
	}
	return false
}

// CapabilityRequest is a single invocation requested by the oracle.
type CapabilityRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Turn is one entry of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Requests is set only on assistant turns that defer to capabilities.
	Requests []CapabilityRequest `json:"requests,omitempty"`

	// RequestID and Name are set only on capability-result turns.
	RequestID string `json:"request_id,omitempty"`
	Name      string `json:"name,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Defers reports whether the turn is an assistant deferral.
func (t Turn) Defers() bool {
	return t.Role == RoleAssistant && len(t.Requests) > 0
}

// NewUserTurn returns a user turn stamped with the current time.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// NewAssistantTurn returns a final assistant turn.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// NewDeferralTurn returns an assistant turn that requests capabilities.
// Any text the oracle produced alongside the requests is kept as content.
func NewDeferralTurn(content string, reqs []CapabilityRequest) Turn {
	cp := make([]CapabilityRequest, len(reqs))
	copy(cp, reqs)
	return Turn{Role: RoleAssistant, Content: content, Requests: cp, CreatedAt: time.Now().UTC()}
}

// NewResultTurn returns a capability-result turn answering req.
func NewResultTurn(req CapabilityRequest, output string, isError bool) Turn {
	return Turn{
		Role:      RoleCapabilityResult,
		Content:   output,
		RequestID: req.ID,
		Name:      req.Name,
		IsError:   isError,
		CreatedAt: time.Now().UTC(),
	}
}

// ErrOrphanResult is returned when a capability-result turn does not answer
// an outstanding request.
var ErrOrphanResult = errors.New("capability result without outstanding request")

// Transcript is the ordered, append-only dialogue of one session.
// It is not safe for concurrent use; the owning session serializes access.
type Transcript struct {
	turns    []Turn
	pending  []CapabilityRequest
	observer func(Turn)
}

// NewTranscript returns a transcript seeded with the given turns.
func NewTranscript(turns ...Turn) (*Transcript, error) {
	t := &Transcript{}
	for _, turn := range turns {
		if err := t.Append(turn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Append adds a turn to the end of the transcript.
func (t *Transcript) Append(turn Turn) error {
	if !turn.Role.Valid() {
		return fmt.Errorf("append turn: unknown role %q", turn.Role)
	}
	if turn.Role != RoleAssistant && len(turn.Requests) > 0 {
		return fmt.Errorf("append turn: %s turn cannot carry capability requests", turn.Role)
	}

	if turn.Role == RoleCapabilityResult {
		idx := t.pendingIndex(turn.RequestID)
		if idx < 0 {
			return fmt.Errorf("%w: %q", ErrOrphanResult, turn.RequestID)
		}
		t.pending = append(t.pending[:idx], t.pending[idx+1:]...)
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	t.turns = append(t.turns, turn)
	t.pending = append(t.pending, turn.Requests...)
	if t.observer != nil {
		t.observer(turn)
	}
	return nil
}

// Observe registers fn to be called with every turn appended from now on.
// A nil fn removes the observer.
func (t *Transcript) Observe(fn func(Turn)) {
	t.observer = fn
}

func (t *Transcript) pendingIndex(id string) int {
	for i, req := range t.pending {
		if req.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the most recent turn.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Pending returns the requests that have not been answered yet, in the
// order they were issued.
func (t *Transcript) Pending() []CapabilityRequest {
	out := make([]CapabilityRequest, len(t.pending))
	copy(out, t.pending)
	return out
}

// Dialogue returns the turns a human reader sees. See DialogueOf.
func (t *Transcript) Dialogue() []Turn {
	return DialogueOf(t.turns)
}

// DialogueOf filters turns down to user turns, capability results and
// assistant turns with text. Assistant turns that only carry requests are
// omitted.
func DialogueOf(turns []Turn) []Turn {
	var out []Turn
	for _, turn := range turns {
		if turn.Defers() && turn.Content == "" {
			continue
		}
		out = append(out, turn)
	}
	return out
}

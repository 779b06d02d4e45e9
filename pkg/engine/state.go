package engine

import (
	"errors"
	"fmt"
)

// State is the position of a run in the orchestration loop.
type State int

const (
	// AwaitingOracle is entered once a user turn is appended and after
	// every dispatch batch.
	AwaitingOracle State = iota

	// DispatchingCapabilities is entered when the oracle defers.
	DispatchingCapabilities

	// Terminated is entered when the oracle answers.
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingOracle:
		return "awaiting_oracle"
	case DispatchingCapabilities:
		return "dispatching_capabilities"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrIllegalTransition is returned by ValidateTransition.
var ErrIllegalTransition = errors.New("illegal state transition")

// ValidateTransition reports whether the loop may move from one state to
// another. Terminated is final.
func ValidateTransition(from, to State) error {
	switch {
	case from == AwaitingOracle && to == DispatchingCapabilities,
		from == AwaitingOracle && to == Terminated,
		from == DispatchingCapabilities && to == AwaitingOracle:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

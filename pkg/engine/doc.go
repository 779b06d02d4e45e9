// Package engine implements the orchestration loop of the service desk.
//
// Run drives a transcript between two activities: asking the oracle for
// the next step and dispatching the capability requests it defers to.
// Result turns are appended in request order, whatever order the
// capabilities finish in. A run ends with a final assistant turn or a
// named error: ErrNoUserTurn, api.ErrBudgetExceeded,
// *api.UnknownCapabilityError, a wrapped api.ErrOracleUnavailable or the
// context's error.
package engine

// Package api defines the core conversation types of the service desk.
//
// A [Transcript] is the append-only, ordered log of [Turn] values for one
// session. Assistant turns either carry final text or defer to capabilities
// through [CapabilityRequest] entries; every capability-result turn answers
// exactly one of those requests.
//
// The package also holds the error taxonomy shared by the engine, the oracle
// adapters and the capability registry, plus the [APIError] wire format used
// by the HTTP transport.
//
// Core types:
//   - [Turn]: one unit of dialogue (system, user, assistant, capability-result)
//   - [Transcript]: ordered, append-only sequence of turns
//   - [CapabilityRequest]: a named invocation requested by the oracle
//   - [APIError]: structured error with type, code, param, and message
//
// The package performs no I/O.
package api

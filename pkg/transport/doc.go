// Package transport defines the handler interfaces and middleware chain for
// the service desk HTTP transport.
//
// # Handler Interfaces
//
// Two interfaces define the contract between the transport layer and the
// session layer:
//
//   - TurnHandler runs one user turn of a session through the engine and
//     returns the final assistant turn.
//   - SessionStore creates, inspects and deletes sessions.
//
// # Middleware
//
// The middleware chain wraps TurnHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID) and structured logging via log/slog.
//
// # Errors
//
// APIErrorFrom maps the service desk error taxonomy onto *api.APIError and
// HTTPStatusFromError picks the status code, so every failure reaches the
// client as {"error": {"type", "code", "message"}}.
package transport

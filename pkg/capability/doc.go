// Package capability holds the registry of named actions the reasoning
// oracle may request.
//
// A [Capability] declares a name, a natural-language description and a JSON
// Schema for its arguments, and executes with already validated arguments.
// The [Registry] resolves requests by name, applies schema defaults,
// validates arguments, recovers from panics and records Prometheus metrics.
// Failures inside a capability are reported as
// [api.CapabilityExecutionError]; unknown names as
// [api.UnknownCapabilityError].
//
// Built-in capabilities live in the builtins subpackages. The mcp
// subpackage registers tools of remote MCP servers; the mcpserver
// subpackage exposes a registry to MCP clients.
package capability

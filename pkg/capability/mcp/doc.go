// Package mcp connects to remote MCP servers and registers their tools as
// capabilities.
//
// Each configured server gets one Client. Capabilities lists the server's
// tools once and wraps every tool as a capability.Capability whose
// declaration carries the tool's input schema. Invoking the capability
// calls the tool over the shared client session.
package mcp

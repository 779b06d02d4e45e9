// Package mcpserver exposes registered capabilities as MCP tools, so other
// agents can call the service desk's actions directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/debug"
)

// Source is the set of capabilities to expose.
type Source interface {
	Declarations() []capability.Declaration
	Dispatch(ctx context.Context, req api.CapabilityRequest) (string, error)
}

// New builds an MCP server with one tool per capability of src.
func New(src Source, version string) (*mcp.Server, error) {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "servicedesk", Version: version}, nil)

	for _, decl := range src.Declarations() {
		raw, err := decl.ParametersJSON()
		if err != nil {
			return nil, err
		}
		var schema map[string]any
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("schema of %q: %w", decl.Name, err)
		}

		server.AddTool(&mcp.Tool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: schema,
		}, toolHandler(src, decl.Name))
	}

	slog.Info("mcp server ready", "tools", len(src.Declarations()))
	return server, nil
}

func toolHandler(src Source, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("invalid arguments JSON: %v", err)), nil
			}
		}

		creq := api.CapabilityRequest{ID: api.NewRequestID(), Name: name, Arguments: args}
		debug.Log("mcp", "tool call", "capability", name, "request_id", creq.ID)

		out, err := src.Dispatch(ctx, creq)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out}}}, nil
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

// ServeStdio runs server over stdin/stdout until ctx is done or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
)

// connectTestServer starts an in-memory MCP server with the given tools
// and returns a connected Client.
func connectTestServer(t *testing.T, tools map[string]mcp.ToolHandler) *Client {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "hr-tools", Version: "1.0.0"}, nil)
	for name, handler := range tools {
		server.AddTool(&mcp.Tool{
			Name:        name,
			Description: "Test tool: " + name,
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"employee": map[string]any{"type": "string"}},
				"required":   []string{"employee"},
			},
		}, handler)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	go server.Run(ctx, serverTransport)

	client := NewClient(ServerConfig{Name: "hr-tools"}, "test")
	if err := client.ConnectWithTransport(ctx, clientTransport); err != nil {
		cancel()
		t.Fatalf("ConnectWithTransport() error: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		cancel()
	})
	return client
}

func leaveBalance(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Employee string `json:"employee"`
	}
	json.Unmarshal(req.Params.Arguments, &args)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: args.Employee + " has 12 days left"}},
	}, nil
}

func TestClient_CapabilitiesRegisterAndDispatch(t *testing.T) {
	client := connectTestServer(t, map[string]mcp.ToolHandler{
		"leave-balance": leaveBalance,
	})

	caps, err := client.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities() error: %v", err)
	}
	if len(caps) != 1 {
		t.Fatalf("len(caps) = %d, want 1", len(caps))
	}
	decl := caps[0].Declaration()
	if decl.Name != "leave-balance" || decl.Parameters == nil {
		t.Fatalf("declaration = %+v", decl)
	}

	r := capability.NewRegistry()
	r.MustRegister(caps...)

	out, err := r.Dispatch(context.Background(), api.CapabilityRequest{
		ID: "call_1", Name: "leave-balance", Arguments: map[string]any{"employee": "Asha"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if out != "Asha has 12 days left" {
		t.Errorf("output = %q", out)
	}

	// The remote schema is enforced locally before the call goes out.
	_, err = r.Dispatch(context.Background(), api.CapabilityRequest{ID: "call_2", Name: "leave-balance"})
	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) || !strings.Contains(err.Error(), "invalid arguments") {
		t.Errorf("missing argument error = %v", err)
	}
}

func TestClient_ToolErrorResult(t *testing.T) {
	client := connectTestServer(t, map[string]mcp.ToolHandler{
		"leave-balance": func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "employee not found"}},
			}, nil
		},
	})

	_, err := client.Call(context.Background(), "leave-balance", map[string]any{"employee": "nobody"})
	if err == nil || err.Error() != "employee not found" {
		t.Errorf("Call() error = %v, want tool text", err)
	}
}

func TestClient_MultipleTextParts(t *testing.T) {
	client := connectTestServer(t, map[string]mcp.ToolHandler{
		"leave-balance": func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: "line one"},
				&mcp.TextContent{Text: "line two"},
			}}, nil
		},
	})

	out, err := client.Call(context.Background(), "leave-balance", map[string]any{"employee": "Asha"})
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if out != "line one\nline two" {
		t.Errorf("output = %q", out)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient(ServerConfig{Name: "hr"}, "")
	if _, err := c.Capabilities(context.Background()); err == nil {
		t.Error("Capabilities() on unconnected client should fail")
	}
	if _, err := c.Call(context.Background(), "x", nil); err == nil {
		t.Error("Call() on unconnected client should fail")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestClient_UnsupportedTransport(t *testing.T) {
	c := NewClient(ServerConfig{Name: "hr", URL: "ws://hr", Transport: "websocket"}, "")
	if err := c.Connect(context.Background()); err == nil || !strings.Contains(err.Error(), "unsupported transport") {
		t.Errorf("Connect() error = %v", err)
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/debug"
)

// Client wraps an MCP client session for a single server.
type Client struct {
	cfg     ServerConfig
	version string

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewClient creates a Client. Call Connect before use.
func NewClient(cfg ServerConfig, version string) *Client {
	if version == "" {
		version = "dev"
	}
	return &Client{cfg: cfg, version: version}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Connect performs the MCP handshake over the configured transport.
func (c *Client) Connect(ctx context.Context) error {
	t, err := c.transport()
	if err != nil {
		return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
	}
	return c.ConnectWithTransport(ctx, t)
}

// ConnectWithTransport performs the MCP handshake over t.
func (c *Client) ConnectWithTransport(ctx context.Context, t mcp.Transport) error {
	client := mcp.NewClient(&mcp.Implementation{Name: "servicedesk", Version: c.version}, nil)

	session, err := client.Connect(ctx, t, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	slog.Info("connected to MCP server", "server", c.cfg.Name, "url", c.cfg.URL)
	return nil
}

func (c *Client) transport() (mcp.Transport, error) {
	hc := httpClient(c.cfg)

	switch c.cfg.Transport {
	case "sse":
		t := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if hc != nil {
			t.HTTPClient = hc
		}
		return t, nil
	case "streamable-http", "":
		t := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if hc != nil {
			t.HTTPClient = hc
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

func (c *Client) currentSession() (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}
	return c.session, nil
}

// Capabilities lists the server's tools and wraps each as a capability.
func (c *Client) Capabilities(ctx context.Context) ([]capability.Capability, error) {
	session, err := c.currentSession()
	if err != nil {
		return nil, err
	}

	var caps []capability.Capability
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		decl, err := declarationOf(tool)
		if err != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, err)
		}
		caps = append(caps, &toolCapability{client: c, decl: decl})
	}

	debug.Log("mcp", "discovered tools", "server", c.cfg.Name, "count", len(caps))
	return caps, nil
}

// Call invokes a tool by name. A result flagged as an error by the server
// is returned as an error carrying the tool's text.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	session, err := c.currentSession()
	if err != nil {
		return "", err
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("MCP tool call %q on %q: %w", name, c.cfg.Name, err)
	}

	text := textOf(result)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// toolCapability exposes one remote tool.
type toolCapability struct {
	client *Client
	decl   capability.Declaration
}

func (t *toolCapability) Declaration() capability.Declaration { return t.decl }

func (t *toolCapability) Invoke(ctx context.Context, args map[string]any) (string, error) {
	slog.Info("calling remote tool", "server", t.client.cfg.Name, "tool", t.decl.Name)
	return t.client.Call(ctx, t.decl.Name, args)
}

func declarationOf(tool *mcp.Tool) (capability.Declaration, error) {
	decl := capability.Declaration{Name: tool.Name, Description: tool.Description}
	if tool.InputSchema == nil {
		return decl, nil
	}

	data, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return decl, fmt.Errorf("marshaling input schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return decl, fmt.Errorf("parsing input schema: %w", err)
	}
	decl.Parameters = &schema
	return decl, nil
}

func textOf(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

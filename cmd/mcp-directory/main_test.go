package main

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/servicedesk/pkg/capability"
	sdmcp "github.com/rhuss/servicedesk/pkg/capability/mcp"
)

func connect(t *testing.T) *sdmcp.Client {
	t.Helper()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go newServer().Run(ctx, serverTransport)

	c := sdmcp.NewClient(sdmcp.ServerConfig{Name: "directory"}, "test")
	if err := c.ConnectWithTransport(ctx, clientTransport); err != nil {
		t.Fatalf("ConnectWithTransport() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDirectoryTools(t *testing.T) {
	c := connect(t)

	caps, err := c.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities() error: %v", err)
	}
	reg := capability.NewRegistry()
	for _, cp := range caps {
		if err := reg.Register(cp); err != nil {
			t.Fatal(err)
		}
	}
	if !reg.Has("lookup-employee") || !reg.Has("list-departments") {
		t.Fatalf("registered tools = %v", reg.Declarations())
	}

	out, err := c.Call(context.Background(), "lookup-employee", map[string]any{"name": "asha"})
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if !strings.Contains(out, "asha.rao@example.com") {
		t.Errorf("lookup = %q", out)
	}

	out, err = c.Call(context.Background(), "list-departments", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Engineering\nFinance\nHuman Resources" {
		t.Errorf("departments = %q", out)
	}
}

func TestDirectoryUnknownEmployee(t *testing.T) {
	c := connect(t)

	if _, err := c.Call(context.Background(), "lookup-employee", map[string]any{"name": "nobody"}); err == nil {
		t.Fatal("Call() for unknown employee succeeded")
	}
}

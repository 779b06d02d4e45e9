// Command mcp-directory runs a small employee directory as an MCP server.
// It is a ready-made remote capability source for servicedesk's
// mcp.servers setting and provides "lookup-employee" and
// "list-departments" tools.
//
// Configuration:
//
//	PORT - Listen port (default: 8081)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type employee struct {
	Name       string
	Department string
	Email      string
}

var directory = []employee{
	{"Asha Rao", "Engineering", "asha.rao@example.com"},
	{"Ravi Menon", "Human Resources", "ravi.menon@example.com"},
	{"Mei Chen", "Finance", "mei.chen@example.com"},
	{"Omar Haddad", "Engineering", "omar.haddad@example.com"},
}

type lookupInput struct {
	Name string `json:"name" jsonschema:"Full or partial name of the employee"`
}

func newServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "employee-directory", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup-employee",
		Description: "Find colleagues by name and return their department and email",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in lookupInput) (*mcp.CallToolResult, struct{}, error) {
		var lines []string
		for _, e := range directory {
			if strings.Contains(strings.ToLower(e.Name), strings.ToLower(in.Name)) {
				lines = append(lines, fmt.Sprintf("%s, %s, %s", e.Name, e.Department, e.Email))
			}
		}
		if len(lines) == 0 {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "no employee named " + in.Name}},
			}, struct{}{}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(lines, "\n")}},
		}, struct{}{}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list-departments",
		Description: "List the company's departments",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
		var depts []string
		for _, e := range directory {
			if !slices.Contains(depts, e.Department) {
				depts = append(depts, e.Department)
			}
		}
		slices.Sort(depts)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(depts, "\n")}},
		}, struct{}{}, nil
	})

	return server
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := newServer()
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})

	slog.Info("employee directory starting", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("employee directory failed", "error", err)
		os.Exit(1)
	}
}

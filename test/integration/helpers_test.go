// Package integration runs the service desk HTTP API end to end.
//
// Tests run against a real server backed by the deterministic mock oracle,
// both started in-process using net/http/httptest.
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/bulletin"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/grievance"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/openings"
	"github.com/rhuss/servicedesk/pkg/capability/builtins/websearch"
	"github.com/rhuss/servicedesk/pkg/capability/mcpserver"
	"github.com/rhuss/servicedesk/pkg/engine"
	"github.com/rhuss/servicedesk/pkg/oracle"
	"github.com/rhuss/servicedesk/pkg/oracle/mockoracle"
	"github.com/rhuss/servicedesk/pkg/oracle/openaicompat"
	"github.com/rhuss/servicedesk/pkg/session"
	"github.com/rhuss/servicedesk/pkg/storage"
	"github.com/rhuss/servicedesk/pkg/storage/memory"
	transporthttp "github.com/rhuss/servicedesk/pkg/transport/http"
)

// testEnv holds the shared servers for all integration tests.
var testEnv *TestEnvironment

// TestEnvironment holds the service desk server and mock oracle.
type TestEnvironment struct {
	Server     *httptest.Server
	MockOracle *httptest.Server
	Grievances *memory.GrievanceLog
	Sessions   *session.Manager
}

// TestMain starts the mock oracle and the server before running tests.
func TestMain(m *testing.M) {
	testEnv = setupTestEnvironment()
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

func setupTestEnvironment() *TestEnvironment {
	mock := httptest.NewServer(mockoracle.NewHandler())

	o := oracle.WithRetry(
		openaicompat.NewClient(openaicompat.Config{BaseURL: mock.URL}),
		oracle.RetryPolicy{MaxRetries: -1},
	)

	grievances := memory.NewGrievanceLog()
	reg := capability.NewRegistry()
	reg.MustRegister(
		openings.New(memory.NewRecordSet(
			storage.Record{"title": "Software Engineer", "location": "Pune"},
			storage.Record{"title": "Data Analyst", "location": "Remote"},
		)),
		bulletin.NewPolicy(memory.NewRecordSet(
			storage.Record{"policy": "Leave", "details": "20 days of paid leave per year"},
		)),
		bulletin.NewNews(memory.NewRecordSet(
			storage.Record{"headline": "New office opens in Berlin"},
		)),
		grievance.New(grievances),
		// External search blocks until cancelled so runs can be interrupted
		// mid-dispatch.
		capability.New(capability.Declaration{
			Name:        websearch.Name,
			Description: "Search external opportunities",
			Parameters: capability.ObjectSchema([]string{"query"}, map[string]*jsonschema.Schema{
				"query": capability.StringProperty("Search query"),
			}),
		}, func(ctx context.Context, _ map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
	)

	eng, err := engine.New(o, reg, engine.Config{
		MaxIterations:     3,
		ParallelDispatch:  true,
		CapabilityTimeout: 5 * time.Second,
	})
	if err != nil {
		panic(fmt.Sprintf("creating engine: %v", err))
	}

	mcpSrv, err := mcpserver.New(reg, "test")
	if err != nil {
		panic(fmt.Sprintf("creating mcp server: %v", err))
	}

	sessions := session.NewManager(eng, 100, 4096)
	server := transporthttp.NewServer(sessions, sessions,
		transporthttp.WithHandler("GET /metrics", promhttp.Handler()),
		transporthttp.WithHandler("/mcp", mcpserver.Handler(mcpSrv)),
	)

	return &TestEnvironment{
		Server:     httptest.NewServer(server.Handler()),
		MockOracle: mock,
		Grievances: grievances,
		Sessions:   sessions,
	}
}

// Teardown stops both servers.
func (env *TestEnvironment) Teardown() {
	if env.Server != nil {
		env.Server.Close()
	}
	if env.MockOracle != nil {
		env.MockOracle.Close()
	}
	env.Sessions.Close()
}

// BaseURL returns the service desk base URL.
func (env *TestEnvironment) BaseURL() string {
	return env.Server.URL
}

// --- HTTP helpers ---

// postJSON sends a POST request with JSON body and returns the response.
func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// postJSONNoFatal is postJSON for use off the test goroutine. It returns
// nil when the request fails.
func postJSONNoFatal(url string, body any) *http.Response {
	data, err := json.Marshal(body)
	if err != nil {
		return nil
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil
	}
	return resp
}

// getURL sends a GET request and returns the response.
func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// deleteURL sends a DELETE request and returns the response.
func deleteURL(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("creating DELETE request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

// decodeJSON reads the response body and decodes it into the target.
func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding JSON: %v", err)
	}
}

// --- Session helpers ---

type sessionInfo struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Turns []api.Turn `json:"turns"`
}

type turnResponse struct {
	Turn api.Turn `json:"turn"`
}

// createSession opens a session for name and fails the test otherwise.
func createSession(t *testing.T, name string) sessionInfo {
	t.Helper()
	resp := postJSON(t, testEnv.BaseURL()+"/v1/sessions", map[string]any{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var info sessionInfo
	decodeJSON(t, resp, &info)
	t.Cleanup(func() { deleteURL(t, testEnv.BaseURL()+"/v1/sessions/"+info.ID).Body.Close() })
	return info
}

// ask posts a non-streaming turn and returns the raw response.
func ask(t *testing.T, id, content string) *http.Response {
	t.Helper()
	return postJSON(t, testEnv.BaseURL()+"/v1/sessions/"+id+"/turns", map[string]any{"content": content})
}

// getSession fetches a session in the given view.
func getSession(t *testing.T, id, view string) sessionInfo {
	t.Helper()
	url := testEnv.BaseURL() + "/v1/sessions/" + id
	if view != "" {
		url += "?view=" + view
	}
	resp := getURL(t, url)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session: status %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var info sessionInfo
	decodeJSON(t, resp, &info)
	return info
}

// --- SSE helpers ---

type sseEvent struct {
	Event string
	Data  string
}

// parseSSEEvents reads every event up to the [DONE] sentinel.
func parseSSEEvents(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	defer resp.Body.Close()

	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.Data != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		case strings.HasPrefix(line, "event: "):
			current.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.Data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading SSE stream: %v", err)
	}
	return events
}

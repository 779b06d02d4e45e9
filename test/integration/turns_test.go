package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/oracle/mockoracle"
)

func TestAskWithoutCapabilities(t *testing.T) {
	s := createSession(t, "Asha")

	resp := ask(t, s.ID, "How are you?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var tr turnResponse
	decodeJSON(t, resp, &tr)
	if tr.Turn.Role != api.RoleAssistant || tr.Turn.Content != mockoracle.Fallback {
		t.Errorf("turn = %+v", tr.Turn)
	}
}

func TestAskSearchesOpenings(t *testing.T) {
	s := createSession(t, "Asha")

	resp := ask(t, s.ID, "Are there job openings for engineers?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var tr turnResponse
	decodeJSON(t, resp, &tr)

	if !strings.HasPrefix(tr.Turn.Content, mockoracle.ResultPrefix) {
		t.Fatalf("answer = %q", tr.Turn.Content)
	}
	if !strings.Contains(tr.Turn.Content, "Software Engineer") || strings.Contains(tr.Turn.Content, "Data Analyst") {
		t.Errorf("answer does not reflect the filtered openings: %q", tr.Turn.Content)
	}
}

func TestAskDispatchesSeveralCapabilities(t *testing.T) {
	s := createSession(t, "Asha")

	resp := ask(t, s.ID, "Tell me the leave policy and the latest news")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	readBody(t, resp)

	full := getSession(t, s.ID, "full")
	var results []string
	for _, turn := range full.Turns {
		if turn.Role == api.RoleCapabilityResult {
			results = append(results, turn.Name)
		}
	}
	if len(results) != 2 || results[0] != "get-policy" || results[1] != "get-company-news" {
		t.Errorf("results in order %v, want [get-policy get-company-news]", results)
	}
}

func TestAskLogsGrievance(t *testing.T) {
	s := createSession(t, "Priya")
	before, _ := testEnv.Grievances.List(context.Background())

	resp := ask(t, s.ID, "I want to complain about rude remarks in meetings")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	readBody(t, resp)

	after, err := testEnv.Grievances.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("grievances = %d, want %d", len(after), len(before)+1)
	}
	g := after[len(after)-1]
	if g.Complainant != "Priya" || g.ID != len(after) || g.Status != "open" {
		t.Errorf("grievance = %+v", g)
	}
}

func TestAskRejectsEmptyContent(t *testing.T) {
	s := createSession(t, "Asha")

	resp := ask(t, s.ID, "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	readBody(t, resp)
}

func TestAskUnknownSession(t *testing.T) {
	resp := ask(t, "does-not-exist", "hello")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	readBody(t, resp)
}

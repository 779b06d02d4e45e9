package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
)

func TestCancelDuringDispatchEndsSession(t *testing.T) {
	s := createSession(t, "Asha")

	done := make(chan *http.Response, 1)
	go func() {
		done <- postJSONNoFatal(testEnv.BaseURL()+"/v1/sessions/"+s.ID+"/turns",
			map[string]any{"content": "Search outside the company for designer roles"})
	}()

	waitForDeferral(t, s.ID)

	resp := deleteURL(t, testEnv.BaseURL()+"/v1/sessions/"+s.ID+"/run")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel run: expected 204, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp.Body.Close()

	select {
	case r := <-done:
		if r != nil {
			r.Body.Close()
		}
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled turn did not return")
	}

	before := len(getSession(t, s.ID, "full").Turns)

	resp = ask(t, s.ID, "What is the leave policy?")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("turn after cancel: expected 404, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	resp.Body.Close()

	full := getSession(t, s.ID, "full")
	if len(full.Turns) != before {
		t.Errorf("transcript grew from %d to %d turns after cancel", before, len(full.Turns))
	}
	last := full.Turns[len(full.Turns)-1]
	if !last.Defers() {
		t.Errorf("last turn = %s %q, want the interrupted deferral", last.Role, last.Content)
	}
}

// waitForDeferral polls the transcript until the run is dispatching.
func waitForDeferral(t *testing.T, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		turns := getSession(t, id, "full").Turns
		if n := len(turns); n > 0 && turns[n-1].Role == api.RoleAssistant && turns[n-1].Defers() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run never deferred to a capability")
}

package api

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var ignoreTime = cmpopts.IgnoreFields(Turn{}, "CreatedAt")

func TestTranscriptAppendOrder(t *testing.T) {
	tr := &Transcript{}
	req := CapabilityRequest{ID: "c1", Name: "get-policy"}

	turns := []Turn{
		NewUserTurn("What is the leave policy?"),
		NewDeferralTurn("", []CapabilityRequest{req}),
		NewResultTurn(req, `[{"policy":"leave"}]`, false),
		NewAssistantTurn("You get 20 days."),
	}
	for i, turn := range turns {
		if err := tr.Append(turn); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	if tr.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tr.Len())
	}
	if diff := cmp.Diff(turns, tr.Turns(), ignoreTime); diff != "" {
		t.Errorf("Turns() mismatch (-want +got):\n%s", diff)
	}
	if len(tr.Pending()) != 0 {
		t.Errorf("Pending() = %v, want none", tr.Pending())
	}
	last, ok := tr.Last()
	if !ok || last.Role != RoleAssistant {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestTranscriptRejectsOrphanResult(t *testing.T) {
	tr, err := NewTranscript(NewUserTurn("hi"))
	if err != nil {
		t.Fatalf("NewTranscript: %v", err)
	}

	err = tr.Append(NewResultTurn(CapabilityRequest{ID: "nope", Name: "get-policy"}, "x", false))
	if !errors.Is(err, ErrOrphanResult) {
		t.Fatalf("Append() error = %v, want ErrOrphanResult", err)
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after rejected append", tr.Len())
	}
}

func TestTranscriptRejectsDuplicateResult(t *testing.T) {
	req := CapabilityRequest{ID: "c1", Name: "get-policy"}
	tr, err := NewTranscript(
		NewUserTurn("hi"),
		NewDeferralTurn("", []CapabilityRequest{req}),
		NewResultTurn(req, "first", false),
	)
	if err != nil {
		t.Fatalf("NewTranscript: %v", err)
	}
	if err := tr.Append(NewResultTurn(req, "second", false)); !errors.Is(err, ErrOrphanResult) {
		t.Errorf("second result error = %v, want ErrOrphanResult", err)
	}
}

func TestTranscriptPendingOrder(t *testing.T) {
	a := CapabilityRequest{ID: "a", Name: "x"}
	b := CapabilityRequest{ID: "b", Name: "y"}
	c := CapabilityRequest{ID: "c", Name: "z"}

	tr, err := NewTranscript(NewUserTurn("go"), NewDeferralTurn("", []CapabilityRequest{a, b, c}))
	if err != nil {
		t.Fatalf("NewTranscript: %v", err)
	}
	if err := tr.Append(NewResultTurn(b, "b", false)); err != nil {
		t.Fatalf("Append(b): %v", err)
	}

	want := []CapabilityRequest{a, c}
	if diff := cmp.Diff(want, tr.Pending()); diff != "" {
		t.Errorf("Pending() mismatch (-want +got):\n%s", diff)
	}
}

func TestTranscriptRejectsBadTurns(t *testing.T) {
	tr := &Transcript{}
	if err := tr.Append(Turn{Role: "robot", Content: "beep"}); err == nil {
		t.Error("expected error for unknown role")
	}
	bad := Turn{Role: RoleUser, Content: "x", Requests: []CapabilityRequest{{ID: "1", Name: "a"}}}
	if err := tr.Append(bad); err == nil {
		t.Error("expected error for user turn with requests")
	}
}

func TestTranscriptDialogue(t *testing.T) {
	req := CapabilityRequest{ID: "c1", Name: "search-internal-openings"}
	tr, err := NewTranscript(
		NewUserTurn("Do you have any openings for a data analyst?"),
		NewDeferralTurn("", []CapabilityRequest{req}),
		NewResultTurn(req, "No job found of your interest", false),
		NewAssistantTurn("No openings match right now."),
	)
	if err != nil {
		t.Fatalf("NewTranscript: %v", err)
	}

	got := tr.Dialogue()
	roles := make([]Role, len(got))
	for i, turn := range got {
		roles[i] = turn.Role
	}
	want := []Role{RoleUser, RoleCapabilityResult, RoleAssistant}
	if diff := cmp.Diff(want, roles); diff != "" {
		t.Errorf("Dialogue() roles mismatch (-want +got):\n%s", diff)
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	tr, _ := NewTranscript(NewUserTurn("hello"))
	turns := tr.Turns()
	turns[0].Content = "mutated"

	first := tr.Turns()[0]
	if first.Content != "hello" {
		t.Errorf("transcript mutated through Turns(): %q", first.Content)
	}
}

func TestTranscriptObserve(t *testing.T) {
	tr := &Transcript{}
	var seen []Role
	tr.Observe(func(turn Turn) { seen = append(seen, turn.Role) })

	req := CapabilityRequest{ID: "c1", Name: "get-policy"}
	_ = tr.Append(NewUserTurn("hi"))
	_ = tr.Append(NewResultTurn(req, "orphan", false)) // rejected, not observed
	_ = tr.Append(NewDeferralTurn("", []CapabilityRequest{req}))

	tr.Observe(nil)
	_ = tr.Append(NewResultTurn(req, "ok", false))

	if diff := cmp.Diff([]Role{RoleUser, RoleAssistant}, seen); diff != "" {
		t.Errorf("observed roles mismatch (-want +got):\n%s", diff)
	}
}

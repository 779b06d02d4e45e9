package openings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/storage"
	"github.com/rhuss/servicedesk/pkg/storage/memory"
)

var jobs = []storage.Record{
	{"title": "Senior Engineer", "department": "Platform"},
	{"title": "Sales Associate", "department": "Sales"},
	{"title": "Data Analyst", "department": "BI"},
	{"department": "untitled"},
}

func TestMatch(t *testing.T) {
	tests := []struct {
		substr string
		want   []string
	}{
		{"engineer", []string{"Senior Engineer"}},
		{"ENGINEER", []string{"Senior Engineer"}},
		{"a", []string{"Sales Associate", "Data Analyst"}},
		{"", []string{"Senior Engineer", "Sales Associate", "Data Analyst"}},
		{"astronaut", nil},
	}
	for _, tt := range tests {
		t.Run(tt.substr, func(t *testing.T) {
			got := Match(jobs, tt.substr)
			var titles []string
			for _, r := range got {
				titles = append(titles, r["title"].(string))
			}
			if strings.Join(titles, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Match(%q) = %v, want %v", tt.substr, titles, tt.want)
			}
		})
	}
}

func TestInvoke_Found(t *testing.T) {
	c := New(memory.NewRecordSet(jobs...))
	out, err := c.Invoke(context.Background(), map[string]any{"title-substring": "engineer"})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if !strings.HasPrefix(out, "Found a job of your interest i.e ") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Senior Engineer") || strings.Contains(out, "Sales Associate") {
		t.Errorf("wrong matches in %q", out)
	}
}

func TestInvoke_NoMatchIsSuccess(t *testing.T) {
	c := New(memory.NewRecordSet(jobs...))
	out, err := c.Invoke(context.Background(), map[string]any{"title-substring": "data scientist"})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if out != NoMatch {
		t.Errorf("output = %q, want %q", out, NoMatch)
	}
}

type failingSet struct{}

func (failingSet) ReadAll(context.Context) ([]storage.Record, error) {
	return nil, storage.ErrNotFound
}

func TestDispatch_MissingRecordsIsExecutionError(t *testing.T) {
	reg := capability.NewRegistry()
	reg.MustRegister(New(failingSet{}))

	_, err := reg.Dispatch(context.Background(), api.CapabilityRequest{ID: "c1", Name: Name})
	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		t.Error("cause lost")
	}
}

package grievance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/storage"
	"github.com/rhuss/servicedesk/pkg/storage/memory"
)

func TestInvoke_ReferenceNumbers(t *testing.T) {
	c := New(memory.NewGrievanceLog())
	ctx := context.Background()
	args := map[string]any{"complainant": "Asha", "accused": "Ben", "description": "Shouting"}

	for want := 1; want <= 3; want++ {
		out, err := c.Invoke(ctx, args)
		if err != nil {
			t.Fatalf("Invoke() error: %v", err)
		}
		exp := fmt.Sprintf("Complaint logged successfully. Reference number: %d.", want)
		if out != exp {
			t.Errorf("output = %q, want %q", out, exp)
		}
	}
}

func TestDispatch_ConcurrentIDsAreDense(t *testing.T) {
	log := memory.NewGrievanceLog()
	reg := capability.NewRegistry()
	reg.MustRegister(New(log))
	ctx := context.Background()

	const n = 30
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Dispatch(ctx, api.CapabilityRequest{
				ID:   fmt.Sprintf("c%d", i),
				Name: Name,
				Arguments: map[string]any{
					"complainant": "c", "accused": "a", "description": "d",
				},
			})
			if err != nil {
				t.Errorf("Dispatch: %v", err)
			}
		}()
	}
	wg.Wait()

	list, _ := log.List(ctx)
	ids := make([]int, len(list))
	for i, g := range list {
		ids[i] = g.ID
	}
	sort.Ints(ids)
	if len(ids) != n {
		t.Fatalf("len = %d, want %d", len(ids), n)
	}
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("ids = %v, want 1..%d", ids, n)
		}
	}
}

func TestDispatch_MissingFieldRejected(t *testing.T) {
	reg := capability.NewRegistry()
	reg.MustRegister(New(memory.NewGrievanceLog()))

	_, err := reg.Dispatch(context.Background(), api.CapabilityRequest{
		ID: "c1", Name: Name, Arguments: map[string]any{"complainant": "Asha"},
	})
	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
}

type failingLog struct{}

func (failingLog) Append(context.Context, storage.GrievanceDraft) (storage.Grievance, error) {
	return storage.Grievance{}, storage.ErrBusy
}

func (failingLog) List(context.Context) ([]storage.Grievance, error) { return nil, nil }

func TestInvoke_StoreFailure(t *testing.T) {
	_, err := New(failingLog{}).Invoke(context.Background(), map[string]any{})
	if !errors.Is(err, storage.ErrBusy) {
		t.Errorf("error = %v, want ErrBusy", err)
	}
}

package capability

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rhuss/servicedesk/pkg/api"
)

func echoCapability(name string) Capability {
	return New(Declaration{
		Name:        name,
		Description: "Echoes the message back",
		Parameters: ObjectSchema([]string{"message"}, map[string]*jsonschema.Schema{
			"message": StringProperty("Message to echo"),
		}),
	}, func(_ context.Context, args map[string]any) (string, error) {
		return "echo: " + StringArg(args, "message"), nil
	})
}

func TestRegistry_DispatchSuccess(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability("echo"))

	out, err := r.Dispatch(context.Background(), api.CapabilityRequest{
		ID: "c1", Name: "echo", Arguments: map[string]any{"message": "hi"},
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if out != "echo: hi" {
		t.Errorf("output = %q, want %q", out, "echo: hi")
	}
}

func TestRegistry_UnknownCapability(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability("echo"))

	_, err := r.Dispatch(context.Background(), api.CapabilityRequest{ID: "c1", Name: "delete_everything"})

	var unknown *api.UnknownCapabilityError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownCapabilityError", err)
	}
	if unknown.Name != "delete_everything" {
		t.Errorf("Name = %q", unknown.Name)
	}
}

func TestRegistry_InvalidArguments(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability("echo-invalid"))

	before := testutil.ToFloat64(capabilityExecutions.WithLabelValues("echo-invalid", "invalid"))

	_, err := r.Dispatch(context.Background(), api.CapabilityRequest{ID: "c1", Name: "echo-invalid", Arguments: map[string]any{}})

	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
	if !strings.Contains(err.Error(), "invalid arguments") {
		t.Errorf("error text = %q, want mention of invalid arguments", err.Error())
	}

	after := testutil.ToFloat64(capabilityExecutions.WithLabelValues("echo-invalid", "invalid"))
	if after != before+1 {
		t.Errorf("invalid counter = %v, want %v", after, before+1)
	}
}

func TestRegistry_WrongArgumentType(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability("echo"))

	_, err := r.Dispatch(context.Background(), api.CapabilityRequest{
		ID: "c1", Name: "echo", Arguments: map[string]any{"message": 42.0},
	})
	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
}

func TestRegistry_BodyErrorIsWrapped(t *testing.T) {
	cause := errors.New("open data/company_policy.json: no such file or directory")
	r := NewRegistry()
	r.MustRegister(New(Declaration{Name: "get-policy"}, func(context.Context, map[string]any) (string, error) {
		return "", cause
	}))

	_, err := r.Dispatch(context.Background(), api.CapabilityRequest{ID: "c1", Name: "get-policy"})

	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
	if execErr.Name != "get-policy" {
		t.Errorf("Name = %q", execErr.Name)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
}

func TestRegistry_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(New(Declaration{Name: "boom"}, func(context.Context, map[string]any) (string, error) {
		panic("kaboom")
	}))

	out, err := r.Dispatch(context.Background(), api.CapabilityRequest{ID: "c1", Name: "boom"})
	if out != "" {
		t.Errorf("output = %q, want empty", out)
	}
	var execErr *api.CapabilityExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want CapabilityExecutionError", err)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error = %q, want panic value", err.Error())
	}
}

func TestRegistry_AppliesDefaults(t *testing.T) {
	var got map[string]any
	r := NewRegistry()
	r.MustRegister(New(Declaration{
		Name: "search",
		Parameters: ObjectSchema([]string{"query"}, map[string]*jsonschema.Schema{
			"query":       StringProperty("Search query"),
			"max-results": {Type: "integer", Default: json.RawMessage("5")},
		}),
	}, func(_ context.Context, args map[string]any) (string, error) {
		got = args
		return "ok", nil
	}))

	if _, err := r.Dispatch(context.Background(), api.CapabilityRequest{
		ID: "c1", Name: "search", Arguments: map[string]any{"query": "go jobs"},
	}); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if n := IntArg(got, "max-results", 0); n != 5 {
		t.Errorf("max-results = %v, want default 5", got["max-results"])
	}
}

func TestRegistry_DoesNotMutateRequestArguments(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(New(Declaration{
		Name: "search",
		Parameters: ObjectSchema(nil, map[string]*jsonschema.Schema{
			"max-results": {Type: "integer", Default: json.RawMessage("5")},
		}),
	}, func(context.Context, map[string]any) (string, error) { return "ok", nil }))

	req := api.CapabilityRequest{ID: "c1", Name: "search", Arguments: map[string]any{}}
	if _, err := r.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if len(req.Arguments) != 0 {
		t.Errorf("request arguments mutated: %v", req.Arguments)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoCapability("echo")); err != nil {
		t.Fatalf("first Register() error: %v", err)
	}
	if err := r.Register(echoCapability("echo")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Register() error = %v, want ErrDuplicate", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_DeclarationsInOrder(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(echoCapability("b"), echoCapability("a"), echoCapability("c"))

	var names []string
	for _, d := range r.Declarations() {
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "b,a,c" {
		t.Errorf("Declarations() order = %v, want [b a c]", names)
	}
	if !r.Has("a") || r.Has("z") {
		t.Error("Has() mismatch")
	}
}

type closingCapability struct {
	Capability
	closed bool
	err    error
}

func (c *closingCapability) Close() error {
	c.closed = true
	return c.err
}

func TestRegistry_Close(t *testing.T) {
	ok := &closingCapability{Capability: echoCapability("one")}
	bad := &closingCapability{Capability: echoCapability("two"), err: errors.New("still busy")}

	r := NewRegistry()
	r.MustRegister(ok, bad)

	err := r.Close()
	if !ok.closed || !bad.closed {
		t.Error("expected every closer to run")
	}
	if err == nil || !strings.Contains(err.Error(), "still busy") {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDeclaration_ParametersJSON(t *testing.T) {
	d := Declaration{Name: "get-policy"}
	raw, err := d.ParametersJSON()
	if err != nil {
		t.Fatalf("ParametersJSON() error: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("type = %v, want object", schema["type"])
	}
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"f": 3.0, "i": 4, "frac": 2.5, "s": "7", "n": json.Number("9")}
	tests := []struct {
		key  string
		want int
	}{
		{"f", 3}, {"i", 4}, {"frac", 1}, {"s", 1}, {"n", 9}, {"missing", 1},
	}
	for _, tt := range tests {
		if got := IntArg(args, tt.key, 1); got != tt.want {
			t.Errorf("IntArg(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

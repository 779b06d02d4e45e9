package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
)

// Declaration describes a capability to the oracle.
type Declaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// ParametersJSON returns the parameter schema as raw JSON. A capability
// without a schema accepts an empty object.
func (d Declaration) ParametersJSON() (json.RawMessage, error) {
	if d.Parameters == nil {
		return json.RawMessage(`{"type":"object","properties":{}}`), nil
	}
	data, err := json.Marshal(d.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshaling parameters of %q: %w", d.Name, err)
	}
	return data, nil
}

// Capability is a named action with a declared argument schema.
type Capability interface {
	Declaration() Declaration

	// Invoke runs the capability. Arguments have been validated against the
	// declared schema and carry its defaults. The returned text is fed back
	// to the oracle verbatim.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// InvokeFunc is the body of a capability built with New.
type InvokeFunc func(ctx context.Context, args map[string]any) (string, error)

type funcCapability struct {
	decl Declaration
	fn   InvokeFunc
}

// New returns a Capability from a declaration and a function body.
func New(decl Declaration, fn InvokeFunc) Capability {
	return &funcCapability{decl: decl, fn: fn}
}

func (f *funcCapability) Declaration() Declaration { return f.decl }

func (f *funcCapability) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f.fn(ctx, args)
}

// StringArg returns args[key] as a string, or "" when absent.
func StringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// IntArg returns args[key] as an int, or def when absent or not numeric.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == math.Trunc(v) {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// ObjectSchema is a small helper for building flat object schemas.
func ObjectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// StringProperty returns a string property schema.
func StringProperty(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

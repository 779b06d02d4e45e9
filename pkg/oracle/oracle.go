// Package oracle defines the reasoning oracle boundary: given the full
// transcript and the capability declarations, an oracle either answers
// (Final) or asks for capabilities to be run (Defer).
//
// Adapters live in subpackages (openaicompat, gemini). Every adapter
// prefixes Instructions to the transcript on every call.
package oracle

import (
	"context"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
)

// Oracle is a reasoning backend. Implementations must be safe for
// concurrent use by multiple sessions.
type Oracle interface {
	// Name identifies the oracle in logs and metrics.
	Name() string

	// Infer returns the next step for the given transcript.
	Infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (Response, error)
}

// Response is either Final or Defer.
type Response interface {
	isResponse()
}

// Final is a direct answer to the user.
type Final struct {
	Text string
}

// Defer asks for capabilities to be run before answering. Text carries any
// commentary the backend produced alongside the requests.
type Defer struct {
	Text     string
	Requests []api.CapabilityRequest
}

func (Final) isResponse() {}
func (Defer) isResponse() {}

// Func adapts a function to the Oracle interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (Response, error)
}

// Name returns f.ID.
func (f Func) Name() string { return f.ID }

// Infer calls f.Fn.
func (f Func) Infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (Response, error) {
	return f.Fn(ctx, turns, decls)
}

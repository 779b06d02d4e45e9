package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rhuss/servicedesk/pkg/api"
)

func okHandler() TurnHandler {
	return TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		turn := api.NewAssistantTurn("ok")
		return &turn, nil
	})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next TurnHandler) TurnHandler {
			return TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
				order = append(order, name+":before")
				turn, err := next.HandleTurn(ctx, req)
				order = append(order, name+":after")
				return turn, err
			})
		}
	}

	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		order = append(order, "handler")
		return nil, nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	wrapped.HandleTurn(context.Background(), &TurnRequest{})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("order = %v, want %v", order, expected)
	}
}

func TestChainEmpty(t *testing.T) {
	wrapped := Chain()(okHandler())
	turn, err := wrapped.HandleTurn(context.Background(), &TurnRequest{})
	if err != nil || turn.Content != "ok" {
		t.Errorf("HandleTurn() = %v, %v", turn, err)
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		panic("something went wrong")
	})

	turn, err := Recovery()(handler).HandleTurn(context.Background(), &TurnRequest{SessionID: "s1"})

	if turn != nil {
		t.Errorf("turn = %v, want nil", turn)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T", err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "something went wrong") {
		t.Errorf("error message = %q, want it to contain panic value", apiErr.Message)
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	turn, err := Recovery()(okHandler()).HandleTurn(context.Background(), &TurnRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.Content != "ok" {
		t.Errorf("content = %q", turn.Content)
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string

	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	RequestID()(handler).HandleTurn(context.Background(), &TurnRequest{})

	if capturedID == "" {
		t.Error("expected a generated request ID, got empty string")
	}
	if len(capturedID) != 32 {
		t.Errorf("request ID length = %d, want 32 (hex encoded)", len(capturedID))
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string

	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		capturedID = RequestIDFromContext(ctx)
		return nil, nil
	})

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	RequestID()(handler).HandleTurn(ctx, &TurnRequest{})

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		ids[RequestIDFromContext(ctx)] = true
		return nil, nil
	})

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		wrapped.HandleTurn(context.Background(), &TurnRequest{})
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := ContextWithRequestID(context.Background(), "req-log-test")
	Logging(logger)(okHandler()).HandleTurn(ctx, &TurnRequest{SessionID: "sess-1"})

	output := buf.String()
	for _, expected := range []string{"request_id=req-log-test", "session_id=sess-1", "turn completed"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingEmitsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
		return nil, api.NewServerError("test failure")
	})

	Logging(logger)(handler).HandleTurn(context.Background(), &TurnRequest{})

	output := buf.String()
	if !strings.Contains(output, "turn failed") {
		t.Errorf("log output missing 'turn failed' in:\n%s", output)
	}
	if !strings.Contains(output, "test failure") {
		t.Errorf("log output missing error message in:\n%s", output)
	}
}

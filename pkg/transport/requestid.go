package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/servicedesk/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// turn. An ID already in the context (set by the HTTP adapter from the
// X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next TurnHandler) TurnHandler {
		return TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, generateRequestID())
			}
			return next.HandleTurn(ctx, req)
		})
	}
}

func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/servicedesk/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server errors.
func Recovery() Middleware {
	return func(next TurnHandler) TurnHandler {
		return TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (turn *api.Turn, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("handler panicked",
						"session_id", req.SessionID,
						"request_id", RequestIDFromContext(ctx),
						"panic", r,
					)
					turn = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.HandleTurn(ctx, req)
		})
	}
}

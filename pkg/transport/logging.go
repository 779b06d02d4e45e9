package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// turn with the session, request ID, duration and outcome.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next TurnHandler) TurnHandler {
		return TurnHandlerFunc(func(ctx context.Context, req *TurnRequest) (*api.Turn, error) {
			start := time.Now()

			turn, err := next.HandleTurn(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("session_id", req.SessionID),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "turn failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "turn completed", attrs...)
			}
			return turn, err
		})
	}
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/servicedesk/pkg/api"
)

// Stream event names.
const (
	eventTurn  = "turn"
	eventDone  = "done"
	eventError = "error"
)

type writerState int

const (
	writerIdle writerState = iota
	writerStreaming
	writerCompleted
)

var errWriterCompleted = errors.New("sse writer is completed")

// sseWriter streams the turns of one run as server-sent events:
//
//	event: turn
//	data: {turn}
//
// followed by exactly one terminal "done" or "error" event and a final
// "data: [DONE]" line.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

// WriteTurn sends one appended turn.
func (s *sseWriter) WriteTurn(turn api.Turn) error {
	return s.write(eventTurn, turn, false)
}

// Done sends the final assistant turn and ends the stream.
func (s *sseWriter) Done(turn *api.Turn) error {
	return s.write(eventDone, turnResponse{Turn: turn}, true)
}

// Fail sends an error event and ends the stream.
func (s *sseWriter) Fail(apiErr *api.APIError) error {
	return s.write(eventError, api.ErrorResponse{Error: apiErr}, true)
}

func (s *sseWriter) write(event string, payload any, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errWriterCompleted
	}

	if s.state == writerIdle {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.state = writerStreaming
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if terminal {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("failed to write [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

func (s *sseWriter) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}

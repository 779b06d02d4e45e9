package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/observability"
	"github.com/rhuss/servicedesk/pkg/transport"
)

// Adapter serves the session API over HTTP.
type Adapter struct {
	turns    transport.TurnHandler
	sessions transport.SessionStore
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

type createSessionRequest struct {
	Name string `json:"name"`
}

type createTurnRequest struct {
	Content string `json:"content"`
	Stream  bool   `json:"stream"`
}

type turnResponse struct {
	Turn *api.Turn `json:"turn"`
}

// NewAdapter creates an HTTP adapter. Middleware is applied to the
// TurnHandler in the given order.
func NewAdapter(turns transport.TurnHandler, sessions transport.SessionStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		turns = transport.Chain(middlewares...)(turns)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		turns:    turns,
		sessions: sessions,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/sessions", a.handleCreateSession)
	a.mux.HandleFunc("GET /v1/sessions/{id}", a.handleGetSession)
	a.mux.HandleFunc("DELETE /v1/sessions/{id}", a.handleDeleteSession)
	a.mux.HandleFunc("POST /v1/sessions/{id}/turns", a.handleCreateTurn)
	a.mux.HandleFunc("DELETE /v1/sessions/{id}/run", a.handleCancelRun)

	return a
}

// Handle mounts an additional handler, such as /metrics or /mcp, on the
// adapter's mux.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter. Request metrics are
// recorded per matched route and X-Request-ID is propagated.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware propagates the X-Request-ID header into the
// request context and echoes it on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter injects the X-Request-ID header before the
// first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleCreateSession handles POST /v1/sessions.
func (a *Adapter) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !a.decode(w, r, &req) {
		return
	}

	info, err := a.sessions.CreateSession(r.Context(), req.Name)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// handleGetSession handles GET /v1/sessions/{id}. With ?view=dialogue,
// turns that only defer to capabilities are left out.
func (a *Adapter) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view != "" && view != "full" && view != "dialogue" {
		transport.WriteAPIError(w, api.NewInvalidRequestError("view", "view must be 'full' or 'dialogue'"))
		return
	}

	info, err := a.sessions.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	if view == "dialogue" {
		info.Turns = api.DialogueOf(info.Turns)
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDeleteSession handles DELETE /v1/sessions/{id}. A run in
// progress is cancelled first.
func (a *Adapter) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a.inflight.Cancel(id)

	if err := a.sessions.DeleteSession(r.Context(), id); err != nil {
		transport.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCancelRun handles DELETE /v1/sessions/{id}/run.
func (a *Adapter) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("no run in progress for session "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateTurn handles POST /v1/sessions/{id}/turns.
func (a *Adapter) handleCreateTurn(w http.ResponseWriter, r *http.Request) {
	var body createTurnRequest
	if !a.decode(w, r, &body) {
		return
	}

	id := r.PathValue("id")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !a.inflight.Register(id, cancel) {
		transport.WriteAPIError(w, api.NewConflictError("session_busy", "session "+id+" is already running a turn"))
		return
	}
	defer a.inflight.Remove(id)

	req := &transport.TurnRequest{SessionID: id, Content: body.Content}

	if !body.Stream {
		turn, err := a.turns.HandleTurn(ctx, req)
		if err != nil {
			transport.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, turnResponse{Turn: turn})
		return
	}

	sw := newSSEWriter(w)
	req.OnTurn = func(t api.Turn) {
		if err := sw.WriteTurn(t); err != nil {
			cancel()
		}
	}

	turn, err := a.turns.HandleTurn(ctx, req)
	if err != nil {
		apiErr := transport.APIErrorFrom(err)
		if !sw.started() {
			transport.WriteAPIError(w, apiErr)
			return
		}
		sw.Fail(apiErr)
		return
	}
	sw.Done(turn)
}

// decode validates the content type, limits the body size and decodes
// JSON into v. On failure it writes the error response and returns false.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/servicedesk/pkg/api"
)

// HTTPStatusFromError maps an APIError to the corresponding HTTP status
// code. Transport-level errors (body too large, unsupported content type)
// are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case api.ErrorTypeOracleError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIErrorFrom converts any error returned by a handler into an APIError.
func APIErrorFrom(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var unknown *api.UnknownCapabilityError
	switch {
	case errors.Is(err, api.ErrOracleUnavailable):
		e := api.NewUnavailableError("the assistant is unavailable right now, please try again later")
		e.Code = "oracle_unavailable"
		return e
	case errors.Is(err, api.ErrBudgetExceeded):
		e := api.NewServerError(err.Error())
		e.Code = "budget_exceeded"
		return e
	case errors.As(err, &unknown):
		return api.NewOracleError("unknown_capability", err.Error())
	case errors.Is(err, context.Canceled):
		return api.NewConflictError("run_cancelled", "the run was cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		e := api.NewUnavailableError("the run timed out")
		e.Code = "timeout"
		return e
	default:
		return api.NewServerError(err.Error())
	}
}

// WriteErrorResponse writes a JSON error response using the ErrorResponse
// wrapper format from pkg/api.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteError maps err with APIErrorFrom and writes it.
func WriteError(w http.ResponseWriter, err error) {
	WriteAPIError(w, APIErrorFrom(err))
}

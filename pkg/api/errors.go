package api

import (
	"errors"
	"fmt"
)

// Orchestration outcomes.
var (
	// ErrOracleUnavailable is returned when the reasoning oracle cannot be
	// reached after the adapter's retry policy is exhausted.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrBudgetExceeded is returned when a run reaches its iteration budget
	// without a final answer.
	ErrBudgetExceeded = errors.New("iteration budget exceeded")
)

// UnknownCapabilityError reports an oracle request for a capability that is
// not registered.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// CapabilityExecutionError wraps a failure reported by a capability body.
type CapabilityExecutionError struct {
	Name string
	Err  error
}

func (e *CapabilityExecutionError) Error() string {
	return fmt.Sprintf("capability %q failed: %v", e.Name, e.Err)
}

func (e *CapabilityExecutionError) Unwrap() error {
	return e.Err
}

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeUnavailable    ErrorType = "unavailable"
	ErrorTypeOracleError    ErrorType = "oracle_error"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewConflictError creates an APIError for a resource in the wrong state.
func NewConflictError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewUnavailableError creates an APIError for an unreachable dependency.
func NewUnavailableError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnavailable,
		Message: message,
	}
}

// NewOracleError creates an APIError for oracle contract violations.
func NewOracleError(code, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeOracleError,
		Code:    code,
		Message: message,
	}
}

package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxInputLength bounds a single user input in bytes.
const DefaultMaxInputLength = 32 * 1024

// ValidateUserInput checks free-text user input before it is appended to a
// transcript. It returns an *APIError describing the failure, or nil.
func ValidateUserInput(content string, maxLen int) *APIError {
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	if strings.TrimSpace(content) == "" {
		return NewInvalidRequestError("content", "content must not be empty")
	}
	if len(content) > maxLen {
		return NewInvalidRequestError("content",
			fmt.Sprintf("content exceeds maximum of %d bytes", maxLen))
	}
	if !utf8.ValidString(content) {
		return NewInvalidRequestError("content", "content must be valid UTF-8")
	}
	return nil
}

// ValidateName checks the display name a user gives at session start.
func ValidateName(name string) *APIError {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewInvalidRequestError("name", "name must not be empty")
	}
	if utf8.RuneCountInString(name) > 128 {
		return NewInvalidRequestError("name", "name exceeds maximum of 128 characters")
	}
	return nil
}

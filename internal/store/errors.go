package store

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable code for store failure modes.
type ErrorCode string

const (
	// GenerationOverflow indicates the generation counter is exhausted.
	GenerationOverflow ErrorCode = "GENERATION_OVERFLOW"
	// InvalidDelta indicates a delta that cannot apply to the current
	// store state (wrong generation, already consumed, bad references).
	InvalidDelta ErrorCode = "INVALID_DELTA"
	// UnknownFact indicates an id that does not resolve to a live fact.
	UnknownFact ErrorCode = "UNKNOWN_FACT"
)

// Error is a store error with a stable code and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

// NewError creates a store error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Errorf creates a store error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the store error code from err, or "" if err is not a
// store error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

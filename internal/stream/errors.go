package stream

import (
	"errors"
	"fmt"
)

// Code is a stable error code for stream failure modes.
type Code string

const (
	// Cancelled indicates the consumer's context was cancelled mid-stream.
	Cancelled Code = "CANCELLED"
	// CapacityExceeded indicates a bounded buffer could not hold a single
	// element, e.g. a lexer token larger than its lookahead window.
	CapacityExceeded Code = "CAPACITY_EXCEEDED"
	// Corrupt indicates malformed source the producer cannot process.
	Corrupt Code = "CORRUPT"
)

// Error is a stream error with a stable code and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// NewError creates a stream error.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Errorf creates a stream error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
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

// CodeOf extracts the stream error code from err, or "" if err is not a
// stream error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures.
type ErrorCode string

const (
	UnknownDocument ErrorCode = "UNKNOWN_DOCUMENT"
	NoAdapter       ErrorCode = "NO_ADAPTER"
	InvalidEdit     ErrorCode = "INVALID_EDIT"
	Cancelled       ErrorCode = "CANCELLED"
	ExtractFailed   ErrorCode = "EXTRACT_FAILED"
)

// Error is a typed engine error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from an error, empty when it is not an engine
// error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

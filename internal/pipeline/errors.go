package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures.
type ErrorCode string

const (
	TypeMismatch       ErrorCode = "TYPE_MISMATCH"
	NotReversible      ErrorCode = "NOT_REVERSIBLE"
	StageNotReversible ErrorCode = "STAGE_NOT_REVERSIBLE"
	StageFailed        ErrorCode = "STAGE_FAILED"
	Cancelled          ErrorCode = "CANCELLED"
)

// Error is a typed pipeline error with an optional cause.
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

// CodeOf extracts the code from an error, empty when it is not a pipeline
// error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

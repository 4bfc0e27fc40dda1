package memory

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of memory-engine failure.
type ErrorCode string

const (
	// ErrCodeInvalidEvent marks malformed input to EpisodicStore.Log.
	ErrCodeInvalidEvent ErrorCode = "INVALID_EVENT"
	// ErrCodeMissingText marks an Upsert with empty or absent text.
	ErrCodeMissingText ErrorCode = "MISSING_TEXT"
)

// Error is a structured error with a stable code.
// Encoder failures are never wrapped in Error; they propagate unchanged.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a structured error with the given code and message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsInvalidEvent reports whether err is an INVALID_EVENT error.
func IsInvalidEvent(err error) bool { return CodeOf(err) == ErrCodeInvalidEvent }

// IsMissingText reports whether err is a MISSING_TEXT error.
func IsMissingText(err error) bool { return CodeOf(err) == ErrCodeMissingText }

package ssn

import (
	"errors"
	"fmt"
)

// ErrorType classifies upload failures.
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeSubmission     ErrorType = "submission"
	ErrorTypeConfirmation   ErrorType = "confirmation"
	ErrorTypeCorrection     ErrorType = "correction"
	ErrorTypeQuery          ErrorType = "query"
	ErrorTypeConnection     ErrorType = "connection"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeInvalidState   ErrorType = "invalid_state"
)

// Error is a failed regulator API operation.
type Error struct {
	Type       ErrorType
	Op         string
	StatusCode int
	Message    string
	Cause      error
	Retryable  bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "unknown upload error"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsRetryable reports whether err may succeed on another attempt.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorType returns the type of err, or "" for foreign errors.
func GetErrorType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

func newAuthError(op string, status int, msg string) *Error {
	return &Error{Type: ErrorTypeAuthentication, Op: op, StatusCode: status, Message: msg}
}

func newStateError(op, msg string) *Error {
	return &Error{Type: ErrorTypeInvalidState, Op: op, Message: msg}
}

package errors

import (
	"fmt"
)

// Error represents a Petra engine error with a stable code
type Error struct {
	Code    string // Stable error code
	Message string // Primary error message
	Detail  string // Optional detailed error message
	Hint    string // Optional hint message
	Where   string // Context where error occurred
	cause   error  // Wrapped cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s) DETAIL: %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a new Error with the given code and message
func New(code string, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping a cause
func Wrap(code string, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// WithDetail adds detail to the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithDetailf adds formatted detail to the error
func (e *Error) WithDetailf(format string, args ...interface{}) *Error {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint adds a hint to the error
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// WithWhere sets the context where the error occurred
func (e *Error) WithWhere(where string) *Error {
	e.Where = where
	return e
}

// Common error constructors

// NotFoundError creates a catalog/metadata miss error
func NotFoundError(key string) *Error {
	return Newf(NotFound, "%q not found", key)
}

// TrySalvageError directs the operator to re-run with salvage enabled
func TrySalvageError(name string) *Error {
	return Newf(TrySalvage, "%s file is corrupted or missing", name).
		WithHint("Re-run with salvage enabled to attempt recovery.")
}

// CorruptionError creates a file validation error
func CorruptionError(path string, cause error) *Error {
	return Wrap(Corruption, cause, fmt.Sprintf("%s failed validation", path))
}

// ShuttingDownError creates an engine-closing error
func ShuttingDownError(op string) *Error {
	return Newf(ShuttingDown, "%s refused: engine is closing", op)
}

// TimeoutError creates an operation deadline error
func TimeoutError(elapsedUS, timeoutUS int64) *Error {
	return Newf(Timeout, "operation exceeded its deadline").
		WithDetailf("elapsed %dus, deadline %dus", elapsedUS, timeoutUS)
}

// ConfigError creates an invalid configuration error
func ConfigError(message string) *Error {
	return New(Config, message)
}

// IOErrorf creates an I/O error
func IOErrorf(format string, args ...interface{}) *Error {
	return Newf(IOError, format, args...)
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...interface{}) *Error {
	return Newf(Internal, format, args...)
}

// IsError checks if an error is a Petra Error with a specific code
func IsError(err error, code string) bool {
	if err == nil {
		return false
	}
	pErr, ok := err.(*Error)
	return ok && pErr.Code == code
}

// GetError attempts to extract a Petra Error from any error
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if pErr, ok := err.(*Error); ok {
		return pErr
	}
	return InternalErrorf("%v", err)
}

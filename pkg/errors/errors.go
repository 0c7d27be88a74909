// Package errors provides the structured error system for tiercache with
// error codes and cause wrapping.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents a structured error code for tiercache operations.
type ErrorCode string

const (
	// ErrCodeInvalidConfig indicates a non-positive size or TTL (or other
	// invalid option) supplied at construction time.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeUnknownCache indicates a manager operation referenced a cache
	// name outside the configured fixed set.
	ErrCodeUnknownCache ErrorCode = "UNKNOWN_CACHE"
	// ErrCodeConfigLoad indicates a configuration file could not be read
	// or parsed.
	ErrCodeConfigLoad ErrorCode = "CONFIG_LOAD"
	// ErrCodeLoadFailed indicates a warm-source loader failed for a key.
	ErrCodeLoadFailed ErrorCode = "LOAD_FAILED"
)

// Error is a structured error carrying a code, a message, and an optional
// underlying cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so that errors.Is(err, errors.New(code, ""))
// works across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error wrapping an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// CodeOf returns the code of err if it is a structured Error, or an empty
// code otherwise.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err is a structured Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

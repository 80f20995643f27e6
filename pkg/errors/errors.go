// Package errors provides structured error types for kindview.
//
// This package defines error codes and types that enable:
//   - Separating rendering-policy failures from collaborator failures
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Policy codes (INVALID_OPTIONS, NESTED_RENDER, UNKNOWN_KIND, DEPTH_EXCEEDED,
// INVALID_VALUE) describe failures the render engine recovers from locally:
// they are turned into diagnostic content instead of escaping to the caller.
// See [IsPolicy].
//
// Collaborator codes (ADVICE_FAILED, KERNEL_FAILED, CALLABLE_FAILED) wrap
// failures of the kind advisor, the evaluation kernel and user-supplied
// callables. The engine propagates them untouched.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidOptions, "invalid options: %s", key)
//	if errors.IsPolicy(err) {
//	    // render as content
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeKernel, origErr, "evaluate %q", form)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Rendering-policy failures (recovered as content)
	ErrCodeInvalidOptions Code = "INVALID_OPTIONS"
	ErrCodeNestedRender   Code = "NESTED_RENDER"
	ErrCodeUnknownKind    Code = "UNKNOWN_KIND"
	ErrCodeDepthExceeded  Code = "DEPTH_EXCEEDED"
	ErrCodeInvalidValue   Code = "INVALID_VALUE"

	// Collaborator failures (propagated)
	ErrCodeAdvice   Code = "ADVICE_FAILED"
	ErrCodeKernel   Code = "KERNEL_FAILED"
	ErrCodeCallable Code = "CALLABLE_FAILED"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// policyCodes is the set of codes the render engine turns into content.
var policyCodes = map[Code]bool{
	ErrCodeInvalidOptions: true,
	ErrCodeNestedRender:   true,
	ErrCodeUnknownKind:    true,
	ErrCodeDepthExceeded:  true,
	ErrCodeInvalidValue:   true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsPolicy reports whether err is a rendering-policy failure.
// Only the outermost *Error in the chain is consulted, so a policy error
// wrapped as a collaborator failure is not a policy failure.
func IsPolicy(err error) bool {
	return policyCodes[GetCode(err)]
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil && !policyCodes[e.Code] {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

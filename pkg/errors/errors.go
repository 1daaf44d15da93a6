// Package errors provides structured error types for stackdoc.
//
// Every failure that can stop a crate build carries a machine-readable code so
// the builder can decide whether to omit a dependency or abort, and so the CLI
// can print a stable diagnostic:
//
//   - FETCH_FAILED: the crate source could not be downloaded or unpacked
//   - METADATA_FAILED: the manifest is missing or cargo metadata is malformed
//   - CYCLE_DETECTED: a crate was requested again before it finished
//   - STORE_FAILED: a content-store operation failed
//   - GENERATION_FAILED: rustdoc failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid crate name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFetch, origErr, "fetch %s", pv)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Build failures
	ErrCodeFetch      Code = "FETCH_FAILED"
	ErrCodeMetadata   Code = "METADATA_FAILED"
	ErrCodeCycle      Code = "CYCLE_DETECTED"
	ErrCodeStore      Code = "STORE_FAILED"
	ErrCodeGeneration Code = "GENERATION_FAILED"

	// Index failures
	ErrCodeIndexConflict Code = "INDEX_CONFLICT"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
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
// A nil cause still yields an error so call sites can wrap unconditionally
// after checking their own failure condition.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It inspects the outermost *Error in the chain only, so a STORE_FAILED
// wrapping a FETCH_FAILED reports STORE_FAILED.
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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

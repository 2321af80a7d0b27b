// Package errors provides structured error types for the gclient fetcher.
//
// This package defines error codes and types that enable:
//   - Machine-readable error codes for programmatic handling
//   - Consistent "while <operation>: <cause>" chaining as prescribed by
//     the fetcher's error contract
//   - Error wrapping with context preservation
//
// # Usage
//
//	err := errors.New(errors.CodePathEscape, "dep %q escapes workspace base", path)
//	if errors.Is(err, errors.CodePathEscape) {
//	    // fatal, never retried
//	}
//
//	err := errors.Wrap(errors.CodeSubprocess, origErr, "while cloning %s to %s", url, dir)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error kinds from the fetcher's error handling design. Every one of
// them is fatal to the current run; none are retried internally.
const (
	CodeConfig     Code = "CONFIG_ERROR"
	CodeEval       Code = "EVAL_ERROR"
	CodePathEscape Code = "PATH_ESCAPE"
	CodeDuplicate  Code = "DUPLICATE_KEY"
	CodeNetwork    Code = "NETWORK_ERROR"
	CodeRegistry   Code = "REGISTRY_ERROR"
	CodeSubprocess Code = "SUBPROCESS_ERROR"
	CodeIO         Code = "IO_ERROR"
	CodeArchive    Code = "ARCHIVE_ERROR"
)

// Error is a structured error with a code, an optional "while <op>"
// context, and an optional cause.
type Error struct {
	Code    Code
	Op      string // e.g. "cloning https://example/x to src/x"
	Message string
	Cause   error
}

// Error implements the error interface, rendering the chain the way the
// fetcher's user-visible failures are specified: a short description of
// the operation followed by the underlying cause.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("while %s: %s", e.Op, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithOp attaches an operation description, producing the "while X: Y"
// rendering used for user-visible failures.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Is reports whether err has the given error code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the rendered chain for an error, or the plain
// error string if it is not one of ours.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

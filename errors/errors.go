// Package errors provides the coded error types shared by the configuration
// layers: parse and write failures, unsupported entries, validation and
// index errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode int

const (
	ErrUnknown ErrorCode = iota
	ErrNotFound
	ErrInvalidInput
	ErrConfiguration
	ErrConnection

	// Configuration file errors
	ErrParse
	ErrUnsupportedEntry
	ErrWrite

	// Record manager errors
	ErrValidation
	ErrIndex
)

var codeNames = map[ErrorCode]string{
	ErrUnknown:          "unknown",
	ErrNotFound:         "not found",
	ErrInvalidInput:     "invalid input",
	ErrConfiguration:    "configuration",
	ErrConnection:       "connection",
	ErrParse:            "parse",
	ErrUnsupportedEntry: "unsupported entry",
	ErrWrite:            "write",
	ErrValidation:       "validation",
	ErrIndex:            "index",
}

// String returns the human readable name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a domain-specific error with context
type Error struct {
	// Code identifies the error type
	Code ErrorCode

	// Message provides human-readable error details
	Message string

	// Op describes the operation that failed
	Op string

	// Cause is the underlying error that triggered this one
	Cause error

	// Context holds additional details such as the file path or line number
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithOp adds an operation name to the error
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Code:    ErrUnknown,
			Message: err.Error(),
			Op:      op,
			Cause:   err,
		}
	}

	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Op:      op,
		Cause:   e.Cause,
		Context: e.Context,
	}
}

// WithContext merges context into the error
func WithContext(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Code:    ErrUnknown,
			Message: err.Error(),
			Cause:   err,
			Context: context,
		}
	}

	merged := make(map[string]interface{}, len(e.Context)+len(context))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range context {
		merged[k] = v
	}

	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Op:      e.Op,
		Cause:   e.Cause,
		Context: merged,
	}
}

// New creates a new Error
func New(code ErrorCode, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with a code and message
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// GetContext returns the error context
func GetContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Context
	}
	return nil
}

// IsNotFound returns true if the error is a not found error
func IsNotFound(err error) bool {
	return GetCode(err) == ErrNotFound
}

// IsParse returns true if the file could not be read or did not match the grammar
func IsParse(err error) bool {
	return GetCode(err) == ErrParse
}

// IsUnsupportedEntry returns true if an entry key has no record kind
func IsUnsupportedEntry(err error) bool {
	return GetCode(err) == ErrUnsupportedEntry
}

// IsWrite returns true if saving failed
func IsWrite(err error) bool {
	return GetCode(err) == ErrWrite
}

// IsValidation returns true if user supplied data was rejected
func IsValidation(err error) bool {
	return GetCode(err) == ErrValidation
}

// IsIndex returns true if a record index was out of range
func IsIndex(err error) bool {
	return GetCode(err) == ErrIndex
}

// IsConfiguration returns true if the error stems from invalid settings or
// a call made in the wrong state
func IsConfiguration(err error) bool {
	return GetCode(err) == ErrConfiguration
}

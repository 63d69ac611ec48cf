// Package errors provides structured error types for cargo supply-chain.
//
// Every failure surfaced by the crates.io cache, the live API client and the
// dependency classifier carries a machine-readable [Code], so the command layer
// can choose wording and exit status without string matching.
//
// # Error Codes
//
//   - IO_ERROR: file or network I/O failed
//   - DESERIALIZE_ERROR: stored or downloaded data is malformed
//   - NOT_FOUND: the cache directory (or a requested resource) is absent
//   - ALREADY_EXISTS: refusal to repurpose an unexpected filesystem entry
//   - INVALID_RESPONSE: the server answered with an unexpected HTTP status
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "no cache directory")
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // fall back to the live API
//	}
//
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "open %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Cache and storage errors
	ErrCodeIO            Code = "IO_ERROR"
	ErrCodeDeserialize   Code = "DESERIALIZE_ERROR"
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeAlreadyExists Code = "ALREADY_EXISTS"

	// Network errors
	ErrCodeInvalidResponse Code = "INVALID_RESPONSE"
	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeRateLimited     Code = "RATE_LIMITED"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
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
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// Only the outermost *Error in the chain is consulted, so a wrapping error
// decides the classification.
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

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}

// Package apperr defines the AdCP error taxonomy: a small set of stable
// code values every tool handler, adapter and scheduler surfaces on
// failure, distinct from the freeform Go error chains used internally.
package apperr

import (
	"errors"
	"fmt"
)

// Code values that appear in every wire-facing error.
const (
	CodeAuthenticationError = "authentication_error"
	CodeValidationError     = "validation_error"
	CodeDataIntegrityError  = "data_integrity_error"
	CodeNotFound            = "not_found"
	CodeInvalidRequest      = "invalid_request"
	CodeAdapterError        = "adapter_error"
	CodeTimeoutError        = "timeout_error"
	CodeUnavailable         = "unavailable"
)

// Error is the wire shape for a tool-call failure: {code, message, details?}.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func new(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches a structured details payload to an existing error.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

func Authentication(format string, args ...any) *Error { return new(CodeAuthenticationError, format, args...) }
func Validation(format string, args ...any) *Error     { return new(CodeValidationError, format, args...) }
func DataIntegrity(format string, args ...any) *Error  { return new(CodeDataIntegrityError, format, args...) }
func NotFound(format string, args ...any) *Error       { return new(CodeNotFound, format, args...) }
func InvalidRequest(format string, args ...any) *Error { return new(CodeInvalidRequest, format, args...) }
func Adapter(format string, args ...any) *Error        { return new(CodeAdapterError, format, args...) }
func Timeout(format string, args ...any) *Error        { return new(CodeTimeoutError, format, args...) }
func Unavailable(format string, args ...any) *Error    { return new(CodeUnavailable, format, args...) }

// As extracts an *Error from err if it is one (directly or via errors.As
// semantics against a wrapped chain), returning ok=false otherwise.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// Package schema implements the AdCP wire boundary: the Result tagged
// union used by every oneOf response, the Budget sum-type extraction
// helper, and request/response JSON Schema validation.
package schema

import "encoding/json"

// Result is a tagged union representing a tool call's outcome. Exactly one
// of Success or Failure is populated; callers must match on IsSuccess
// rather than probe for the presence of fields the way the source
// implementation did with hasattr-style checks.
type Result[T any] struct {
	success bool
	value   T
	err     *Error
}

// Error is the wire shape of a Result's failure branch.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Ok constructs a successful Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{success: true, value: value}
}

// Err constructs a failed Result.
func Err[T any](code, message string) Result[T] {
	return Result[T]{success: false, err: &Error{Code: code, Message: message}}
}

// ErrDetails constructs a failed Result carrying a structured details payload.
func ErrDetails[T any](code, message string, details any) Result[T] {
	return Result[T]{success: false, err: &Error{Code: code, Message: message, Details: details}}
}

// IsSuccess reports which branch of the union is populated.
func (r Result[T]) IsSuccess() bool { return r.success }

// Value returns the success value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.success
}

// ErrorValue returns the failure error and true, or nil and false.
func (r Result[T]) ErrorValue() (*Error, bool) {
	if r.success {
		return nil, false
	}
	return r.err, true
}

// MarshalJSON emits exactly one of the two shapes: the success value's own
// JSON encoding, or {"errors": [error]}. The two never co-occur on the wire.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.success {
		return json.Marshal(r.value)
	}
	return json.Marshal(struct {
		Errors []Error `json:"errors"`
	}{Errors: []Error{*r.err}})
}

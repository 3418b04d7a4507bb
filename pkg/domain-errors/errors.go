// Package domainerrors provides coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded domain errors,
// and the HTTP layer maps codes to status lines via ToHTTPStatus. Handlers
// never inspect raw store errors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and tests.
type Code string

const (
	// CodeInvalidInput covers malformed values caught at parse time
	// (bad UUIDs, unknown enum values).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest covers structurally valid but unacceptable requests.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized means no usable identity. Always mapped to 401 and
	// never reveals whether the resource exists.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden means a valid identity with no qualifying relationship.
	CodeForbidden Code = "forbidden"
	// CodeNotFound means the resource does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict covers duplicate exclusive relationships and invalid
	// state transitions.
	CodeConflict Code = "conflict"
	// CodeTimeout means a bounded operation exceeded its deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal covers data-layer faults. The description is never
	// surfaced to clients.
	CodeInternal Code = "internal_error"
)

// DomainError carries a code, a human-readable message, optional field-level
// validation detail, and an optional wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause remains
// reachable via errors.Is/As for store-sentinel checks in tests.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// WithFields creates a CodeBadRequest error carrying field-level detail for
// validation failures.
func WithFields(message string, fields map[string]string) error {
	return &DomainError{Code: CodeBadRequest, Message: message, Fields: fields}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors so unexpected faults never leak detail to clients.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto an HTTP status line.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Package errors defines custom error types for the courier transport.
package errors

import (
	"errors"
	"fmt"
)

// DomainError represents errors in the domain logic
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrConnectionFailed) holds for errors built by NewDomainError.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Address validation errors, reported before any I/O happens.
var (
	ErrMissingAddress = &DomainError{
		Code:    "MISSING_ADDRESS",
		Message: "missing address",
	}

	ErrMissingHost = &DomainError{
		Code:    "MISSING_HOST",
		Message: "missing host",
	}

	ErrMissingPort = &DomainError{
		Code:    "MISSING_PORT",
		Message: "missing port",
	}
)

// Transport and lifecycle errors.
var (
	ErrConnectionFailed = &DomainError{
		Code:    "CONNECTION_FAILED",
		Message: "failed to establish connection",
	}

	ErrBindFailed = &DomainError{
		Code:    "BIND_FAILED",
		Message: "failed to bind listening socket",
	}

	ErrAlreadyListening = &DomainError{
		Code:    "ALREADY_LISTENING",
		Message: "receiver is already listening",
	}

	ErrNotListening = &DomainError{
		Code:    "NOT_LISTENING",
		Message: "receiver is not listening",
	}

	ErrInvalidMaterial = &DomainError{
		Code:    "INVALID_MATERIAL",
		Message: "security material is invalid",
	}
)

// NewDomainError creates a new domain error with context
func NewDomainError(base *DomainError, err error) error {
	return &DomainError{
		Code:    base.Code,
		Message: base.Message,
		Err:     err,
	}
}

// InvalidProtocolError is returned when an address does not use the secure scheme.
type InvalidProtocolError struct {
	Scheme string
}

func (e *InvalidProtocolError) Error() string {
	return fmt.Sprintf("INVALID_PROTOCOL: invalid protocol %q", e.Scheme)
}

// StatusError carries the HTTP status of a rejected delivery.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("UNEXPECTED_STATUS: remote responded with status %d", e.Code)
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

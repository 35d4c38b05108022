package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies application errors for transport mapping.
type ErrorCode int

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInvalidState
	ErrProviderFailure
	ErrConfigurationMissing
	ErrUnauthorized
	ErrInternal
)

// AppError carries a code, a client-safe message and the wrapped cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

// InvalidState marks an operation attempted against a notification that
// is not in a sendable state. Callers report it and skip, never retry.
func InvalidState(message string) *AppError {
	return &AppError{Code: ErrInvalidState, Message: message}
}

// ProviderFailure wraps a per-recipient send fault. It is recorded in
// the delivery log and never aborts the batch.
func ProviderFailure(message string, err error) *AppError {
	return &AppError{Code: ErrProviderFailure, Message: message, Err: err}
}

// ConfigurationMissing marks an absent provider credential. It is fatal
// for the whole send attempt.
func ConfigurationMissing(what string) *AppError {
	return &AppError{Code: ErrConfigurationMissing, Message: fmt.Sprintf("%s is not configured", what)}
}

func Unauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// Non-application errors report ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsNotFound reports whether err is an application NotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrNotFound
}

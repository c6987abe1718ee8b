// Package apperror defines the closed set of business error kinds used across
// the service and their mapping to HTTP status codes. Handlers convert any
// error reaching the transport boundary into one of these kinds so that no
// internal detail (storage errors, token parse output) leaks to the client.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the caller-visible failure categories.
type Kind int

const (
	// KindInternal is the fallback for unexpected server-side failures.
	KindInternal Kind = iota

	// KindInvalidCredentials covers both unknown username and wrong password.
	KindInvalidCredentials

	// KindUserAlreadyExists is returned when registration hits an existing username.
	KindUserAlreadyExists

	// KindConflict is returned when a requested short code is already taken.
	KindConflict

	// KindAuth covers missing, malformed, badly signed and expired bearer tokens.
	KindAuth

	// KindForbidden is returned when a valid identity lacks access.
	KindForbidden

	// KindNotFound is returned when the requested entity does not exist.
	KindNotFound

	// KindCannotGenerateToken marks a token signing failure. It is rare and
	// treated as fatal for the request.
	KindCannotGenerateToken

	// KindValidation is returned for malformed or invalid request bodies.
	KindValidation
)

// AppError carries a Kind, a client-safe message and an optional wrapped cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to its transport status code.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindUserAlreadyExists:
		return http.StatusConflict
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindCannotGenerateToken:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError of the given kind.
func New(kind Kind, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewInvalidCredentials creates an invalid-credentials error. The message is
// deliberately identical for unknown user and wrong password.
func NewInvalidCredentials(err error) *AppError {
	return New(KindInvalidCredentials, "invalid credentials", err)
}

// NewUserAlreadyExists creates a duplicate-registration error.
func NewUserAlreadyExists(err error) *AppError {
	return New(KindUserAlreadyExists, "user already exists", err)
}

// NewConflict creates a short-code-taken error.
func NewConflict(err error) *AppError {
	return New(KindConflict, "data already exists", err)
}

// NewAuth creates an authentication-rejected error.
func NewAuth(err error) *AppError {
	return New(KindAuth, "user not authenticated", err)
}

// NewCannotGenerateToken creates a token signing failure error.
func NewCannotGenerateToken(err error) *AppError {
	return New(KindCannotGenerateToken, "could not generate access token", err)
}

// NewValidation creates a bad-request error with a client-safe message.
func NewValidation(message string, err error) *AppError {
	return New(KindValidation, message, err)
}

// NewInternal creates a generic internal error. The wrapped cause is logged
// server-side only.
func NewInternal(err error) *AppError {
	return New(KindInternal, "internal server error", err)
}

// From returns err as an *AppError, wrapping unknown errors as KindInternal.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

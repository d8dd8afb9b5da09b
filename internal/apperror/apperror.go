// Package apperror defines the error kinds shared by the backend API and the
// client session layer.
//
// ERROR KINDS, NOT ERROR STRINGS:
// Callers branch with errors.Is (sentinels) and errors.As (*RemoteError,
// *NetworkError, *AppError). Nothing in this repo compares error messages.
//
//	errors.Is(err, apperror.ErrEmailTaken)        → signup collided
//	var re *apperror.RemoteError; errors.As(...)  → backend said no, re.Status says why
//	var ne *apperror.NetworkError; errors.As(...) → backend never answered
package apperror

import (
	"errors"
	"fmt"
)

// Backend API kinds. HTTP handlers map these to status codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
)

// Client session kinds.
var (
	// ErrInvalidCredentialFormat means a stored password hash could not be
	// parsed. It is a corrupt record, not a wrong password.
	ErrInvalidCredentialFormat = errors.New("invalid credential format")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidCredential       = errors.New("invalid credential")
	ErrEmailTaken              = errors.New("email already registered")
	ErrDisconnected            = errors.New("backend disconnected")

	// ErrDeclined covers expected refusals: notification permission, missing
	// push hardware or config, biometric failure or cancel. Not a failure.
	ErrDeclined = errors.New("declined")

	// ErrNoSession means an operation needed a persisted session and none exists.
	ErrNoSession = errors.New("no persisted session")

	// ErrSessionPersist means the session could not be written to the local
	// store. The auth itself succeeded; the user should retry.
	ErrSessionPersist = errors.New("session could not be saved")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// RemoteError is a non-2xx answer from the backend. Status carries the HTTP
// status so callers can classify (404 vs 409 vs 5xx) without parsing bodies.
type RemoteError struct {
	Status int
	Method string
	Path   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %s %s returned status %d", e.Method, e.Path, e.Status)
}

// NetworkError is a transport-level failure: timeout, DNS, refused connection.
// The request may never have reached the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRemoteStatus reports whether err carries a RemoteError with the given status.
func IsRemoteStatus(err error, status int) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == status
}

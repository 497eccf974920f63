package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// TooLargeError indicates an upload above the size limit
	TooLargeError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }
func (e *TooLargeError) Error() string     { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }
func (e *TooLargeError) StatusCode() int     { return http.StatusRequestEntityTooLarge }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }
func (e *TooLargeError) Is(target error) bool     { return target == ErrTooLarge }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTooLarge     = errors.New("too large")

	// ErrNetwork marks transport-level failures; callers may retry.
	ErrNetwork = errors.New("network failure")

	// ErrCorruptHierarchy marks a cycle or dangling parent found while walking
	// the folder tree. It is reported as a diagnostic, never returned as fatal.
	ErrCorruptHierarchy = errors.New("corrupt hierarchy")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // folder, file or data_room
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NetworkError wraps a transport failure (dial, reset, timeout, 5xx).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return ErrNetwork.Error()
	}
	return "network failure: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Category is the user-facing class of a failed operation.
type Category string

const (
	CategoryNotFound     Category = "not_found"
	CategoryNameConflict Category = "name_conflict"
	CategoryUnauthorized Category = "unauthorized"
	CategoryNetwork      Category = "network"
	CategoryInvalid      Category = "invalid"
	CategoryUnknown      Category = "unknown"
)

// Categorize maps an error onto the taxonomy shown to users.
func Categorize(err error) Category {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return CategoryNameConflict
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return CategoryUnauthorized
	case errors.Is(err, ErrNetwork):
		return CategoryNetwork
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTooLarge):
		return CategoryInvalid
	default:
		return CategoryUnknown
	}
}

// Message returns a human-readable sentence for a failure category.
func (c Category) Message() string {
	switch c {
	case CategoryNotFound:
		return "This item no longer exists. The view has been refreshed."
	case CategoryNameConflict:
		return "An item with this name already exists in this location."
	case CategoryUnauthorized:
		return "You are not allowed to change this item."
	case CategoryNetwork:
		return "The server could not be reached. Please try again."
	case CategoryInvalid:
		return "The request was rejected as invalid."
	default:
		return "Something went wrong. Your change was undone."
	}
}

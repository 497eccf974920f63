package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, ""},
		{"conflict struct", &ConflictError{Message: "dup"}, CategoryNameConflict},
		{"wrapped conflict", fmt.Errorf("create: %w", ErrConflict), CategoryNameConflict},
		{"not found struct", &NotFoundError{Message: "gone"}, CategoryNotFound},
		{"forbidden", fmt.Errorf("x: %w", ErrForbidden), CategoryUnauthorized},
		{"unauthorized struct", &UnauthorizedError{Message: "no"}, CategoryUnauthorized},
		{"network", &NetworkError{Err: errors.New("reset")}, CategoryNetwork},
		{"validation", &ValidationError{Message: "bad"}, CategoryInvalid},
		{"too large", &TooLargeError{Message: "big"}, CategoryInvalid},
		{"other", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.err); got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  HTTPError
		want int
	}{
		{&NotFoundError{}, http.StatusNotFound},
		{&ValidationError{}, http.StatusBadRequest},
		{&UnauthorizedError{}, http.StatusUnauthorized},
		{&ForbiddenError{}, http.StatusForbidden},
		{&ConflictError{}, http.StatusConflict},
		{&TooLargeError{}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if got := tt.err.StatusCode(); got != tt.want {
			t.Errorf("%T.StatusCode() = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := fmt.Errorf("list folders: %w", &NetworkError{Err: inner})
	if !errors.Is(err, inner) {
		t.Error("NetworkError should unwrap to its cause")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("NetworkError should match ErrNetwork")
	}
}

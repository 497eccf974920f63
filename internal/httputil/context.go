package httputil

import (
	"context"
	"net/http"

	"dataroom/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userKey contextKey = "user"
)

// WithUser adds the authenticated caller to the request context
func WithUser(r *http.Request, user models.User) *http.Request {
	ctx := context.WithValue(r.Context(), userKey, user)
	return r.WithContext(ctx)
}

// GetUser retrieves the caller from context; ok is false for anonymous requests
func GetUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(userKey).(models.User)
	return user, ok
}

// GetUserID retrieves the caller's ID, returns empty string if not found
func GetUserID(r *http.Request) string {
	user, _ := GetUser(r)
	return user.ID
}

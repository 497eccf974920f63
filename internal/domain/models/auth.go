package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims represents the JWT claims issued by the identity provider.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	Role         string                 `json:"role"` // "authenticated" or "anon"
	SessionID    string                 `json:"session_id"`
	IsAnonymous  bool                   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *AccessClaims) GetUserID() string {
	return c.Subject
}

// DisplayName returns the name from user metadata, falling back to the
// local part of the email address.
func (c *AccessClaims) DisplayName() string {
	if name, ok := c.UserMetadata["full_name"].(string); ok && name != "" {
		return name
	}
	if name, ok := c.UserMetadata["name"].(string); ok && name != "" {
		return name
	}
	for i := 0; i < len(c.Email); i++ {
		if c.Email[i] == '@' {
			return c.Email[:i]
		}
	}
	return c.Email
}

// User converts the claims into the caller identity.
func (c *AccessClaims) User() User {
	return User{ID: c.Subject, Email: c.Email, Name: c.DisplayName()}
}

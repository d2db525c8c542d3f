package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity payload carried inside a session token. Values
// are only produced by the token codec; callers read them through the
// accessors.
type Claims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid"`
	UserName  string `json:"name"`
	UserEmail string `json:"email"`
}

// UserID returns the user ID
func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Name returns the display name
func (c *Claims) Name() string {
	return c.UserName
}

// Email returns the email address
func (c *Claims) Email() string {
	return c.UserEmail
}

// Identity projects the claims into an Identity
func (c *Claims) Identity() Identity {
	return Identity{
		ID:    c.UserID(),
		Name:  c.UserName,
		Email: c.UserEmail,
	}
}

// Expires returns the expiration time
func (c *Claims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *Claims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenID returns the jti claim
func (c *Claims) TokenID() string {
	return c.RegisteredClaims.ID
}

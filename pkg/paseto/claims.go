package pasetotoken

import "time"

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
)

// Claims is the app-facing token payload. Role is one of the queue roles
// known to the authorize package.
type Claims struct {
	Type TokenType

	Subject string
	Role    string

	Issuer   string
	Audience string

	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string // jti
}

// GetSubject implements reqctx.AuthClaims.
func (c *Claims) GetSubject() string { return c.Subject }

// GetRole implements reqctx.AuthClaims.
func (c *Claims) GetRole() string { return c.Role }

// IsExpired implements reqctx.AuthClaims.
func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

package reqctx

import "context"

// AuthClaims is what the auth middleware attaches for an authenticated
// staff member.
type AuthClaims interface {
	// GetSubject returns the staff member's id as issued by the identity service.
	GetSubject() string

	// GetRole returns the queue role carried by the token.
	GetRole() string

	IsExpired() bool
}

// WithClaims stores authentication claims in the context.
func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, keyClaims, claims)
}

// ClaimsFromContext retrieves authentication claims from the context.
// Returns nil if the request is not authenticated.
func ClaimsFromContext(ctx context.Context) AuthClaims {
	claims, _ := ctx.Value(keyClaims).(AuthClaims)
	return claims
}

// IsAuthenticated returns true if valid claims exist in the context.
func IsAuthenticated(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	return claims != nil && !claims.IsExpired()
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return "", false
	}
	return claims.GetSubject(), true
}

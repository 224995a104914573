package authorize

import (
	"context"
	"errors"

	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

var ErrNoRoleInContext = errors.New("no role found in context")

// RoleFromContext extracts the caller's role from the authenticated claims.
func RoleFromContext(ctx context.Context) (Role, error) {
	claims := reqctx.ClaimsFromContext(ctx)
	if claims == nil || claims.GetRole() == "" {
		return "", ErrNoRoleInContext
	}
	return Role(claims.GetRole()), nil
}

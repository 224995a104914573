package authorize

import (
	"context"
	"log/slog"

	casbin "github.com/casbin/casbin/v2"

	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

// AuditedAuthorization logs every decision with the request id and subject
// of the caller. Denials log at warn, grants at debug.
type AuditedAuthorization struct {
	inner  IAuthorization
	logger *slog.Logger
}

func NewAuditedAuthorization(inner IAuthorization, logger *slog.Logger) IAuthorization {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedAuthorization{inner: inner, logger: logger.With("component", "authz")}
}

func (a *AuditedAuthorization) Enforce(ctx context.Context, role Role, object Resource, action Action) (bool, error) {
	allowed, err := a.inner.Enforce(ctx, role, object, action)

	log := reqctx.Logger(ctx, a.logger).With(
		"role", string(role),
		"resource", string(object),
		"action", string(action),
	)
	switch {
	case err != nil:
		log.ErrorContext(ctx, "authz: enforce failed", "error", err)
	case allowed:
		log.DebugContext(ctx, "authz: granted")
	default:
		log.WarnContext(ctx, "authz: denied")
	}
	return allowed, err
}

func (a *AuditedAuthorization) MustEnforce(ctx context.Context, role Role, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, role, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (a *AuditedAuthorization) Raw() *casbin.SyncedEnforcer {
	return a.inner.Raw()
}

// Package reqctx carries request-scoped data between HTTP middleware and the
// code it calls.
//
// RequestMeta is set for every request by the request id middleware. Claims
// are set only for authenticated requests.
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: "abc-123"})
//	ctx = reqctx.WithClaims(ctx, claims)
//
//	rid := reqctx.RequestIDFromContext(ctx)
//	sub, ok := reqctx.SubjectFromContext(ctx)
package reqctx

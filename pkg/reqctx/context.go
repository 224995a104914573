package reqctx

import (
	"context"
	"log/slog"
	"time"
)

type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keyClaims
)

// RequestMeta is captured once per request by the request id middleware.
type RequestMeta struct {
	RequestID  string
	Method     string
	Path       string
	ClientIP   string
	UserAgent  string
	ReceivedAt time.Time
}

func WithRequestMeta(ctx context.Context, meta *RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

func RequestMetaFromContext(ctx context.Context) (*RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(*RequestMeta)
	return meta, ok && meta != nil
}

// RequestIDFromContext returns "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		return meta.RequestID
	}
	return ""
}

// LogAttrs returns the request id and acting subject as slog key/value pairs.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if rid := RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, "request_id", rid)
	}
	if sub, ok := SubjectFromContext(ctx); ok {
		attrs = append(attrs, "subject", sub)
	}
	return attrs
}

// Logger returns base annotated with LogAttrs. A nil base means slog.Default().
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	attrs := LogAttrs(ctx)
	if len(attrs) == 0 {
		return base
	}
	return base.With(attrs...)
}

package reqctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeClaims struct {
	sub, role string
	expired   bool
}

func (f fakeClaims) GetSubject() string { return f.sub }
func (f fakeClaims) GetRole() string    { return f.role }
func (f fakeClaims) IsExpired() bool    { return f.expired }

func TestClaims(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ClaimsFromContext(ctx))
	assert.False(t, IsAuthenticated(ctx))

	ctx = WithClaims(ctx, fakeClaims{sub: "s1", role: "staff"})
	assert.True(t, IsAuthenticated(ctx))
	sub, ok := SubjectFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "s1", sub)

	expired := WithClaims(context.Background(), fakeClaims{sub: "s1", expired: true})
	assert.False(t, IsAuthenticated(expired))
}

func TestRequestMeta(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFromContext(ctx))

	ctx = WithRequestMeta(ctx, &RequestMeta{RequestID: "rid-1"})
	assert.Equal(t, "rid-1", RequestIDFromContext(ctx))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(context.Background(), base).Info("plain")
	assert.NotContains(t, buf.String(), "request_id")

	buf.Reset()
	ctx := WithRequestMeta(context.Background(), &RequestMeta{RequestID: "rid-2"})
	ctx = WithClaims(ctx, fakeClaims{sub: "nurse-9", role: "staff"})
	Logger(ctx, base).Info("annotated")
	assert.Contains(t, buf.String(), "request_id=rid-2")
	assert.Contains(t, buf.String(), "subject=nurse-9")
}

package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
	pasetotoken "github.com/Alijeyrad/simorq_queue/pkg/paseto"
	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("0192f0c4-7d1e-7c3a-9f00-1a2b3c4d5e6f"))
	assert.True(t, validRequestID("lb:abc_123.x"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID("line\nbreak"))
	assert.False(t, validRequestID(strings.Repeat("a", maxRequestIDLen+1)))
}

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(reqctx.RequestIDFromContext(c.Context()))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-1", resp.Header.Get(HeaderRequestID))

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	rid := resp.Header.Get(HeaderRequestID)
	assert.NotEqual(t, "bad id", rid)
	assert.Len(t, rid, 36)
}

func newApp(t *testing.T, mgr *pasetotoken.Manager, res authorize.Resource, act authorize.Action) *fiber.App {
	t.Helper()
	e, err := authorize.NewEnforcer("")
	require.NoError(t, err)
	auth, err := authorize.NewAuthorization(e)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/", AuthRequired(mgr), RequirePermission(auth, res, act), func(c fiber.Ctx) error {
		return c.SendString(reqctx.ClaimsFromContext(c.Context()).GetSubject())
	})
	return app
}

func TestAuthRequired_Disabled(t *testing.T) {
	app := newApp(t, nil, authorize.ResourceClinic, authorize.ActionCreate)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthRequired_Tokens(t *testing.T) {
	keys := pasetotoken.NewLocalKeys()
	mgr, err := pasetotoken.New(pasetotoken.Config{
		Mode:      keys.Mode,
		Issuer:    "simorq",
		Audience:  "simorq-queue",
		AccessTTL: time.Minute,
	}, keys)
	require.NoError(t, err)

	app := newApp(t, mgr, authorize.ResourceQueue, authorize.ActionExecute)
	call := func(header string) int {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	staff, err := mgr.Issue("nurse-1", string(authorize.RoleStaff))
	require.NoError(t, err)
	viewer, err := mgr.Issue("screen-1", string(authorize.RoleViewer))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, call(""))
	assert.Equal(t, fiber.StatusUnauthorized, call("Basic abc"))
	assert.Equal(t, fiber.StatusUnauthorized, call("Bearer not-a-token"))
	assert.Equal(t, fiber.StatusForbidden, call("Bearer "+viewer))
	assert.Equal(t, fiber.StatusOK, call("bearer "+staff))
}

func TestNewLimiter(t *testing.T) {
	app := fiber.New()
	app.Use(NewLimiter(nil, 2))
	app.Get("/", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)
}

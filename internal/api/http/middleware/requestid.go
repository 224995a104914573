package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

const (
	HeaderRequestID = "X-Request-Id"
	LocalRequestID  = "request_id"

	maxRequestIDLen = 128
)

// RequestID keeps a well-formed incoming X-Request-Id, or issues a new one,
// and records the request metadata in the context.
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		rid := c.Get(HeaderRequestID)
		if !validRequestID(rid) {
			rid = uuid.Must(uuid.NewV7()).String()
		}

		c.Locals(LocalRequestID, rid)
		c.Set(HeaderRequestID, rid)

		c.SetContext(reqctx.WithRequestMeta(c.Context(), &reqctx.RequestMeta{
			RequestID:  rid,
			Method:     c.Method(),
			Path:       c.Path(),
			ClientIP:   c.IP(),
			UserAgent:  c.Get(fiber.HeaderUserAgent),
			ReceivedAt: time.Now(),
		}))
		return c.Next()
	}
}

// validRequestID accepts ids that are safe to echo into headers and logs.
func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-', b == '_', b == '.', b == ':':
		default:
			return false
		}
	}
	return true
}

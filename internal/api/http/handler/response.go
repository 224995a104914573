package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
	"github.com/Alijeyrad/simorq_queue/pkg/reqctx"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func fail(c fiber.Ctx, status int, kind, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": errorBody{Kind: kind, Code: code, Message: msg}})
}

func badRequest(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusBadRequest, string(queue.KindValidation), "Validation", msg)
}

func notFound(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusNotFound, string(queue.KindNotFound), "NotFound", msg)
}

func conflict(c fiber.Ctx, msg string) error {
	return fail(c, fiber.StatusConflict, string(queue.KindConflict), "Conflict", msg)
}

func internalError(c fiber.Ctx, err error) error {
	reqctx.Logger(c.Context(), slog.Default()).ErrorContext(c.Context(), "request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return fail(c, fiber.StatusInternalServerError, string(queue.KindInternal), "Internal", "internal server error")
}

// mapQueueError turns a queue engine error into its HTTP status.
func mapQueueError(c fiber.Ctx, err error) error {
	var qe *queue.Error
	if !errors.As(err, &qe) {
		return internalError(c, err)
	}

	status := fiber.StatusInternalServerError
	switch qe.Kind {
	case queue.KindNotFound:
		status = fiber.StatusNotFound
	case queue.KindInvalidState, queue.KindConflict:
		status = fiber.StatusConflict
	case queue.KindValidation:
		status = fiber.StatusBadRequest
	}
	return fail(c, status, string(qe.Kind), qe.Code, err.Error())
}

// ErrorHandler renders errors returned by middleware, such as
// fiber.ErrUnauthorized, in the same envelope as handler errors.
func ErrorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := "http"
		switch fe.Code {
		case fiber.StatusUnauthorized:
			kind = "unauthorized"
		case fiber.StatusForbidden:
			kind = "forbidden"
		case fiber.StatusNotFound:
			kind = string(queue.KindNotFound)
		case fiber.StatusTooManyRequests:
			kind = "rate_limited"
		}
		return fail(c, fe.Code, kind, "", fe.Message)
	}
	return internalError(c, err)
}
